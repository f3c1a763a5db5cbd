package sqlstore

const listingColumns = `hotel_id, property_title, city_name, price, rating, address,
  latitude, longitude, room_type, image_url, image_path`

// Plain INSERT: a second row for the same hotel_id must fail, never overwrite.
const insertListingSQL = `
INSERT INTO hotels
  (` + listingColumns + `)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

// -----------------------------------------------------------------------------
// READ QUERIES
// -----------------------------------------------------------------------------

const selectListingSQL = `
SELECT id, ` + listingColumns + `
FROM hotels
`

const getByExternalIDSQL = selectListingSQL + `WHERE hotel_id = ?`

const getByIDSQL = selectListingSQL + `WHERE id = ?`
