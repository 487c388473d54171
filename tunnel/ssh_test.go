package tunnel

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	ncerr "gomosh/internal/errors"
	"gomosh/util"
)

// startTestSSHServer runs a minimal SSH server that accepts any
// public key and answers every exec request by writing output to the
// channel. It stops when the test ends.
func startTestSSHServer(t *testing.T, output string, exitAfterOutput bool) (host string, port int) {
	t.Helper()

	_, hostPriv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	hostSigner, err := ssh.NewSignerFromKey(hostPriv)
	if err != nil {
		t.Fatal(err)
	}

	serverCfg := &ssh.ServerConfig{
		PublicKeyCallback: func(ssh.ConnMetadata, ssh.PublicKey) (*ssh.Permissions, error) {
			return &ssh.Permissions{}, nil
		},
	}
	serverCfg.AddHostKey(hostSigner)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { ln.Close() }) //nolint:errcheck

	go func() {
		for {
			nConn, err := ln.Accept()
			if err != nil {
				return
			}
			go func(nConn net.Conn) {
				conn, chans, reqs, err := ssh.NewServerConn(nConn, serverCfg)
				if err != nil {
					return
				}
				defer conn.Close() //nolint:errcheck
				go ssh.DiscardRequests(reqs)

				for newCh := range chans {
					if newCh.ChannelType() != "session" {
						newCh.Reject(ssh.UnknownChannelType, "unsupported") //nolint:errcheck
						continue
					}
					ch, chReqs, err := newCh.Accept()
					if err != nil {
						continue
					}
					go func(ch ssh.Channel, chReqs <-chan *ssh.Request) {
						for req := range chReqs {
							if req.Type != "exec" {
								req.Reply(false, nil) //nolint:errcheck
								continue
							}
							req.Reply(true, nil)     //nolint:errcheck
							ch.Write([]byte(output)) //nolint:errcheck
							if exitAfterOutput {
								status := struct{ Status uint32 }{0}
								ch.SendRequest("exit-status", false, ssh.Marshal(&status)) //nolint:errcheck
								ch.Close()                                                 //nolint:errcheck
							}
						}
					}(ch, chReqs)
				}
			}(nConn)
		}
	}()

	addr := ln.Addr().String()
	h, p, err := net.SplitHostPort(addr)
	if err != nil {
		t.Fatal(err)
	}
	portNum, _ := strconv.Atoi(p)
	return h, portNum
}

func testTransport(t *testing.T, host string, port int) *SSHTransport {
	t.Helper()
	keyPath := filepath.Join(t.TempDir(), "id_test")
	writeTestKey(t, keyPath)

	return NewSSHTransport(&SSHConfig{
		User:        "test",
		Host:        host,
		Port:        port,
		KeyPath:     keyPath,
		ConnTimeout: 5 * time.Second,
	}, util.NewLogger(0))
}

func TestSSHTransport_ConnectAndExec(t *testing.T) {
	banner := "warning: locale\nMOSH CONNECT 60011 fakeKEY123\n"
	host, port := startTestSSHServer(t, banner, true)

	tr := testTransport(t, host, port)
	if err := tr.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer tr.Close() //nolint:errcheck

	if !tr.IsAlive() {
		t.Fatal("transport not alive after Connect")
	}

	ch, err := tr.Exec(context.Background())
	if err != nil {
		t.Fatalf("Exec: %v", err)
	}
	defer ch.Close() //nolint:errcheck

	if err := ch.Start("mosh-server new"); err != nil {
		t.Fatalf("Start: %v", err)
	}

	// The output accumulates asynchronously; poll the snapshot the
	// way the bootstrap does.
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if strings.Contains(string(ch.Output()), "MOSH CONNECT 60011") {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("output never contained the banner, got %q", ch.Output())
}

func TestSSHTransport_ExecBeforeConnect(t *testing.T) {
	tr := NewSSHTransport(&SSHConfig{User: "test", Host: "127.0.0.1", Port: 22},
		util.NewLogger(0))
	if _, err := tr.Exec(context.Background()); err == nil {
		t.Fatal("Exec on an unconnected transport must fail")
	}
}

func TestSSHTransport_StartTwiceRejected(t *testing.T) {
	host, port := startTestSSHServer(t, "ok\n", false)
	tr := testTransport(t, host, port)
	if err := tr.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer tr.Close() //nolint:errcheck

	ch, err := tr.Exec(context.Background())
	if err != nil {
		t.Fatalf("Exec: %v", err)
	}
	defer ch.Close() //nolint:errcheck

	if err := ch.Start("true"); err != nil {
		t.Fatalf("first Start: %v", err)
	}
	if err := ch.Start("true"); err == nil {
		t.Fatal("second Start on the same channel must fail")
	}
}

func TestSSHTransport_HostKeyMismatch(t *testing.T) {
	host, port := startTestSSHServer(t, "", false)

	// Pin a different key for the server's address so strict checking
	// sees a contradiction, not an unknown host.
	wrongPub, _, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	sshPub, err := ssh.NewPublicKey(wrongPub)
	if err != nil {
		t.Fatal(err)
	}
	addr := net.JoinHostPort(host, strconv.Itoa(port))
	khPath := filepath.Join(t.TempDir(), "known_hosts")
	line := knownhosts.Line([]string{addr}, sshPub)
	if err := os.WriteFile(khPath, []byte(line+"\n"), 0600); err != nil {
		t.Fatal(err)
	}

	keyPath := filepath.Join(t.TempDir(), "id_test")
	writeTestKey(t, keyPath)
	tr := NewSSHTransport(&SSHConfig{
		User:          "test",
		Host:          host,
		Port:          port,
		KeyPath:       keyPath,
		StrictHostKey: true,
		KnownHosts:    khPath,
		ConnTimeout:   5 * time.Second,
	}, util.NewLogger(0))

	err = tr.Connect(context.Background())
	if err == nil {
		tr.Close() //nolint:errcheck
		t.Fatal("Connect must fail against a contradicting known_hosts entry")
	}
	if !ncerr.Is(err, ncerr.ErrHostKeyMismatch) {
		t.Errorf("error = %v, want ErrHostKeyMismatch", err)
	}
}

func TestSSHTransport_MonitorFlipsAlive(t *testing.T) {
	host, port := startTestSSHServer(t, "", false)
	tr := testTransport(t, host, port)
	if err := tr.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	if err := tr.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) && tr.IsAlive() {
		time.Sleep(5 * time.Millisecond)
	}
	if tr.IsAlive() {
		t.Fatal("transport still alive after Close")
	}
}

func TestSSHTransport_ChannelCloseIdempotent(t *testing.T) {
	host, port := startTestSSHServer(t, "bye\n", true)
	tr := testTransport(t, host, port)
	if err := tr.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer tr.Close() //nolint:errcheck

	ch, err := tr.Exec(context.Background())
	if err != nil {
		t.Fatalf("Exec: %v", err)
	}
	if err := ch.Start("true"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := ch.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := ch.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}
