package contentstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"trip_hotel/internal/domain"
)

type SFTPConfig struct {
	Host      string
	Port      int
	User      string
	Pass      string
	RemoteDir string
	// KnownHosts is an OpenSSH known_hosts file the server key must appear in.
	KnownHosts            string
	InsecureIgnoreHostKey bool
}

// ErrNoHostKeyPolicy is returned when neither a known_hosts file nor the
// insecure override is configured.
var ErrNoHostKeyPolicy = errors.New("sftp: set SFTP_KNOWN_HOSTS or SFTP_INSECURE_IGNORE_HOST_KEY")

func hostKeyCallback(cfg SFTPConfig) (ssh.HostKeyCallback, error) {
	if cfg.InsecureIgnoreHostKey {
		return ssh.InsecureIgnoreHostKey(), nil
	}
	if cfg.KnownHosts == "" {
		return nil, ErrNoHostKeyPolicy
	}
	cb, err := knownhosts.New(cfg.KnownHosts)
	if err != nil {
		return nil, fmt.Errorf("sftp: load known_hosts: %w", err)
	}
	return cb, nil
}

// SFTP stores content in a remote directory. The client is safe for
// concurrent use, so one SFTP value serves every pipeline worker.
type SFTP struct {
	c    *sftp.Client
	root string
	ssh  *ssh.Client // nil when the caller owns the connection
}

// DialSFTP connects with password auth and owns the resulting connection.
func DialSFTP(ctx context.Context, cfg SFTPConfig) (*SFTP, error) {
	if cfg.Host == "" || cfg.User == "" {
		return nil, fmt.Errorf("sftp: missing SFTP_HOST / SFTP_USER")
	}
	if cfg.Port <= 0 {
		cfg.Port = 22
	}
	cb, err := hostKeyCallback(cfg)
	if err != nil {
		return nil, err
	}
	sshCfg := &ssh.ClientConfig{
		User:            cfg.User,
		Auth:            []ssh.AuthMethod{ssh.Password(cfg.Pass)},
		HostKeyCallback: cb,
		Timeout:         20 * time.Second,
	}
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	type dialRes struct {
		client *ssh.Client
		err    error
	}
	ch := make(chan dialRes, 1)
	go func() {
		c, err := ssh.Dial("tcp", addr, sshCfg)
		ch <- dialRes{client: c, err: err}
	}()

	var sshClient *ssh.Client
	select {
	case <-ctx.Done():
		go func() {
			if r := <-ch; r.client != nil {
				_ = r.client.Close()
			}
		}()
		return nil, fmt.Errorf("sftp: dial canceled: %w", ctx.Err())
	case r := <-ch:
		if r.err != nil {
			return nil, fmt.Errorf("sftp: dial error: %w", r.err)
		}
		sshClient = r.client
	}

	c, err := sftp.NewClient(sshClient)
	if err != nil {
		_ = sshClient.Close()
		return nil, fmt.Errorf("sftp: new client: %w", err)
	}
	s := NewSFTP(c, cfg.RemoteDir)
	s.ssh = sshClient
	return s, nil
}

// NewSFTP wraps an existing client. Close closes the client.
func NewSFTP(c *sftp.Client, root string) *SFTP {
	if root == "" {
		root = "."
	}
	return &SFTP{c: c, root: root}
}

func (s *SFTP) Close() error {
	err := s.c.Close()
	if s.ssh != nil {
		if cerr := s.ssh.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

func (s *SFTP) remote(key string) (string, error) {
	k, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	return path.Join(s.root, k), nil
}

// Put creates or truncates the remote file.
func (s *SFTP) Put(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := s.remote(key)
	if err != nil {
		return err
	}
	if err := s.c.MkdirAll(path.Dir(p)); err != nil {
		return fmt.Errorf("sftp: mkdir %s: %w", path.Dir(p), err)
	}
	f, err := s.c.Create(p)
	if err != nil {
		return fmt.Errorf("sftp: create remote file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return fmt.Errorf("sftp: write %s: %w", p, err)
	}
	return f.Close()
}

func (s *SFTP) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := s.remote(key)
	if err != nil {
		return nil, err
	}
	f, err := s.c.Open(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sftp: open %s: %w", p, err)
	}
	defer f.Close()
	return io.ReadAll(f)
}

func (s *SFTP) Stat(ctx context.Context, key string) (time.Time, bool, error) {
	if err := ctx.Err(); err != nil {
		return time.Time{}, false, err
	}
	p, err := s.remote(key)
	if err != nil {
		return time.Time{}, false, err
	}
	fi, err := s.c.Stat(p)
	if errors.Is(err, fs.ErrNotExist) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("sftp: stat %s: %w", p, err)
	}
	if !fi.Mode().IsRegular() {
		return time.Time{}, false, nil
	}
	return fi.ModTime(), true, nil
}
