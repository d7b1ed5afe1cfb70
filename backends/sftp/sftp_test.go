package sftp

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/pkg/sftp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"

	"github.com/Nazg-Gul/fm/errors"
	"github.com/Nazg-Gul/fm/vfs"
	"github.com/Nazg-Gul/fm/vfs/vfstest"
)

const (
	testUser     = "tester"
	testPassword = "secret"
)

type testServer struct {
	host    string
	port    int
	hostKey string
	userKey []byte // PEM private key accepted by the server
}

// startServer runs an in-process SSH server with the sftp subsystem
// serving the local filesystem.
func startServer(t *testing.T) *testServer {
	t.Helper()

	_, hostPriv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	hostSigner, err := ssh.NewSignerFromKey(hostPriv)
	require.NoError(t, err)

	userPub, userPriv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	authorized, err := ssh.NewPublicKey(userPub)
	require.NoError(t, err)
	block, err := ssh.MarshalPrivateKey(userPriv, "")
	require.NoError(t, err)

	config := &ssh.ServerConfig{
		PasswordCallback: func(c ssh.ConnMetadata, pass []byte) (*ssh.Permissions, error) {
			if c.User() == testUser && string(pass) == testPassword {
				return nil, nil
			}
			return nil, fmt.Errorf("password rejected for %q", c.User())
		},
		PublicKeyCallback: func(c ssh.ConnMetadata, key ssh.PublicKey) (*ssh.Permissions, error) {
			if c.User() == testUser && bytes.Equal(key.Marshal(), authorized.Marshal()) {
				return nil, nil
			}
			return nil, fmt.Errorf("unknown public key for %q", c.User())
		},
	}
	config.AddHostKey(hostSigner)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go serveConn(conn, config)
		}
	}()

	host, port, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)
	p, err := strconv.Atoi(port)
	require.NoError(t, err)

	return &testServer{
		host:    host,
		port:    p,
		hostKey: string(ssh.MarshalAuthorizedKey(hostSigner.PublicKey())),
		userKey: pem.EncodeToMemory(block),
	}
}

func serveConn(conn net.Conn, config *ssh.ServerConfig) {
	sconn, chans, reqs, err := ssh.NewServerConn(conn, config)
	if err != nil {
		_ = conn.Close()
		return
	}
	defer sconn.Close()
	go ssh.DiscardRequests(reqs)

	for nc := range chans {
		if nc.ChannelType() != "session" {
			_ = nc.Reject(ssh.UnknownChannelType, "unknown channel type")
			continue
		}
		ch, requests, err := nc.Accept()
		if err != nil {
			return
		}
		go func() {
			for req := range requests {
				ok := req.Type == "subsystem" && len(req.Payload) > 4 && string(req.Payload[4:]) == "sftp"
				_ = req.Reply(ok, nil)
				if !ok {
					continue
				}
				go func() {
					server, err := sftp.NewServer(ch)
					if err != nil {
						_ = ch.Close()
						return
					}
					_ = server.Serve()
					_ = server.Close()
				}()
			}
		}()
	}
}

func (s *testServer) config() Config {
	return Config{
		Host:     s.host,
		Port:     s.port,
		User:     testUser,
		Password: testPassword,
		HostKey:  s.hostKey,
		Timeout:  5 * time.Second,
	}
}

func connect(t *testing.T, cfg Config) *Backend {
	t.Helper()
	b, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.OnUnload() })
	return b
}

func TestConformance(t *testing.T) {
	srv := startServer(t)

	vfstest.TestSuiteWithConfig(t, func() vfs.Backend {
		return connect(t, srv.config())
	}, vfstest.POSIXConfig(t.TempDir()))
}

func TestAuthentication(t *testing.T) {
	srv := startServer(t)

	t.Run("password", func(t *testing.T) {
		b := connect(t, srv.config())
		assert.Equal(t, DefaultName, b.Name())
	})

	t.Run("private key", func(t *testing.T) {
		cfg := srv.config()
		cfg.Password = ""
		cfg.PrivateKey = srv.userKey
		cfg.Name = "remote"
		b := connect(t, cfg)
		assert.Equal(t, "remote", b.Name())

		_, err := vfs.Stat(b, "/")
		assert.NoError(t, err)
	})

	t.Run("wrong password", func(t *testing.T) {
		cfg := srv.config()
		cfg.Password = "nope"
		_, err := New(cfg)
		require.Error(t, err)
		assert.Equal(t, errors.CodeIO, errors.GetCode(err))
	})

	t.Run("wrong host key", func(t *testing.T) {
		_, other, err := ed25519.GenerateKey(rand.Reader)
		require.NoError(t, err)
		signer, err := ssh.NewSignerFromKey(other)
		require.NoError(t, err)

		cfg := srv.config()
		cfg.HostKey = string(ssh.MarshalAuthorizedKey(signer.PublicKey()))
		_, err = New(cfg)
		require.Error(t, err)
	})

	t.Run("known hosts file", func(t *testing.T) {
		line := fmt.Sprintf("[%s]:%d %s", srv.host, srv.port, srv.hostKey)
		file := filepath.Join(t.TempDir(), "known_hosts")
		require.NoError(t, os.WriteFile(file, []byte(line), 0o600))

		cfg := srv.config()
		cfg.HostKey = ""
		cfg.KnownHostsFile = file
		connect(t, cfg)
	})
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{"missing host", Config{User: "u", Password: "p"}, "host is required"},
		{"missing user", Config{Host: "h", Password: "p"}, "user is required"},
		{"missing credentials", Config{Host: "h", User: "u"}, "password or private key is required"},
		{"bad port", Config{Host: "h", User: "u", Password: "p", Port: 70000}, "invalid port"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.Equal(t, errors.CodeInvalidArgument, errors.GetCode(err))
		})
	}

	t.Run("bad private key", func(t *testing.T) {
		_, err := New(Config{Host: "h", User: "u", PrivateKey: []byte("not a key")})
		assert.Equal(t, errors.CodeInvalidArgument, errors.GetCode(err))
	})

	t.Run("bad host key", func(t *testing.T) {
		_, err := New(Config{Host: "h", User: "u", Password: "p", HostKey: "garbage"})
		assert.Equal(t, errors.CodeInvalidArgument, errors.GetCode(err))
	})

	t.Run("missing known hosts file", func(t *testing.T) {
		_, err := New(Config{Host: "h", User: "u", Password: "p", KnownHostsFile: "/no/such/known_hosts"})
		assert.Equal(t, errors.CodeInvalidArgument, errors.GetCode(err))
	})

	t.Run("default port", func(t *testing.T) {
		cfg := Config{Host: "example.com"}
		assert.Equal(t, "example.com:22", cfg.address())
	})
}

func TestBackend(t *testing.T) {
	srv := startServer(t)
	b := connect(t, srv.config())
	dir := t.TempDir()

	t.Run("capabilities", func(t *testing.T) {
		assert.True(t, vfs.Supports(b, vfs.OpLink))
		assert.True(t, vfs.Supports(b, vfs.OpUtimes))
		assert.False(t, vfs.Supports(b, vfs.OpUtime))
		assert.False(t, vfs.Supports(b, vfs.OpMknod))
		assert.Equal(t, vfs.MoveRename, vfs.MoveStrategy(b, "/a", "/b"))
	})

	t.Run("unlink refuses directories", func(t *testing.T) {
		sub := dir + "/sub"
		require.NoError(t, vfs.Mkdir(b, sub, 0o755))
		assert.Error(t, vfs.Unlink(b, sub))
		assert.NoError(t, vfs.Rmdir(b, sub))
	})

	t.Run("rmdir on a file", func(t *testing.T) {
		name := dir + "/file"
		require.NoError(t, vfstest.WriteFile(b, name, []byte("x"), 0o644))
		assert.Equal(t, errors.CodeNotDir, errors.GetCode(vfs.Rmdir(b, name)))
		_, err := vfs.Scandir(b, name)
		assert.Equal(t, errors.CodeNotDir, errors.GetCode(err))
	})

	t.Run("hard link", func(t *testing.T) {
		src, dst := dir+"/orig", dir+"/hard"
		require.NoError(t, vfstest.WriteFile(b, src, []byte("shared"), 0o644))
		require.NoError(t, vfs.Link(b, src, dst))
		got, err := vfstest.ReadFile(b, dst)
		require.NoError(t, err)
		assert.Equal(t, "shared", string(got))
	})

	t.Run("dangling symlink in listing", func(t *testing.T) {
		ldir := dir + "/links"
		require.NoError(t, vfs.Mkdir(b, ldir, 0o755))
		require.NoError(t, vfs.Symlink(b, ldir+"/missing", ldir+"/dangling"))

		batch, err := vfs.Scandir(b, ldir)
		require.NoError(t, err)
		defer batch.Release()
		require.Equal(t, 1, batch.Len())
		e := batch.Entries()[0]
		assert.Equal(t, vfs.EntrySymlink, e.Type)
		assert.Nil(t, e.Stat)
		assert.False(t, e.IsDir())
	})

	t.Run("utimes and access time", func(t *testing.T) {
		name := dir + "/times"
		require.NoError(t, vfstest.WriteFile(b, name, nil, 0o644))
		atime := time.Unix(1_500_000_000, 0)
		mtime := time.Unix(1_600_000_000, 0)
		require.NoError(t, vfs.Utimes(b, name, atime, mtime))

		fi, err := vfs.Stat(b, name)
		require.NoError(t, err)
		assert.True(t, fi.ModTime().Equal(mtime))
		assert.True(t, vfs.AccessTime(fi).Equal(atime))
	})

	t.Run("rename replaces target", func(t *testing.T) {
		from, to := dir+"/from", dir+"/to"
		require.NoError(t, vfstest.WriteFile(b, from, []byte("new"), 0o644))
		require.NoError(t, vfstest.WriteFile(b, to, []byte("old"), 0o644))
		require.NoError(t, vfs.Rename(b, from, to))
		got, err := vfstest.ReadFile(b, to)
		require.NoError(t, err)
		assert.Equal(t, "new", string(got))
	})
}

func TestOnUnload(t *testing.T) {
	srv := startServer(t)
	b, err := New(srv.config())
	require.NoError(t, err)

	first := b.OnUnload()
	assert.Equal(t, first, b.OnUnload(), "second unload returns the first result")

	_, err = vfs.Stat(b, "/")
	assert.Error(t, err)
}
