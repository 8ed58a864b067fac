package storage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theblitlabs/tinyml-runner/internal/config"
)

// fakeNode answers the shell API calls the archiver makes. add blocks until
// release is closed when release is non-nil.
func fakeNode(t *testing.T, release chan struct{}) *httptest.Server {
	t.Helper()
	node := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/v0/id":
			io.WriteString(w, `{"ID":"12D3KooWtest"}`)
		case "/api/v0/version":
			io.WriteString(w, `{"Version":"0.20.0"}`)
		case "/api/v0/add":
			io.Copy(io.Discard, r.Body)
			if release != nil {
				<-release
			}
			io.WriteString(w, `{"Name":"dataset","Hash":"bafkreitest","Size":"13"}`)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(node.Close)
	return node
}

func nodeConfig(node *httptest.Server) config.IPFSConfig {
	return config.IPFSConfig{Enabled: true, APIURL: strings.TrimPrefix(node.URL, "http://")}
}

func TestNewIPFSArchiverDisabled(t *testing.T) {
	a, err := NewIPFSArchiver(config.IPFSConfig{Enabled: false, APIURL: "localhost:1"})
	require.NoError(t, err)
	assert.Nil(t, a)
}

func TestIPFSArchiver(t *testing.T) {
	a, err := NewIPFSArchiver(nodeConfig(fakeNode(t, nil)))
	require.NoError(t, err)
	require.NotNil(t, a)

	cid, err := a.Archive(context.Background(), []byte("a,b\n1,2\n3,4\n"))
	require.NoError(t, err)
	assert.Equal(t, "bafkreitest", cid)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = a.Archive(ctx, []byte("x"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestIPFSArchiverStopsAtDeadline(t *testing.T) {
	release := make(chan struct{})
	node := fakeNode(t, release)
	// Registered after the server cleanup, so it runs first and unblocks add.
	t.Cleanup(func() { close(release) })

	a, err := NewIPFSArchiver(nodeConfig(node))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err = a.Archive(ctx, []byte("a,b\n1,2\n"))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestNewIPFSArchiverUnreachable(t *testing.T) {
	node := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer node.Close()

	_, err := NewIPFSArchiver(config.IPFSConfig{Enabled: true, APIURL: strings.TrimPrefix(node.URL, "http://")})
	assert.ErrorContains(t, err, "failed to connect to IPFS node")
}
