package storage

import (
	"context"

	"github.com/theblitlabs/tinyml-runner/internal/config"
	"github.com/theblitlabs/tinyml-runner/pkg/ipfs"
)

// Archiver keeps a durable copy of uploaded datasets and returns a content id.
type Archiver interface {
	Archive(ctx context.Context, data []byte) (string, error)
}

type ipfsArchiver struct {
	svc *ipfs.Service
}

// NewIPFSArchiver connects to the configured node, or returns nil when
// archiving is disabled.
func NewIPFSArchiver(cfg config.IPFSConfig) (Archiver, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	svc, err := ipfs.New(ipfs.Config{APIEndpoint: cfg.APIURL})
	if err != nil {
		return nil, err
	}
	return &ipfsArchiver{svc: svc}, nil
}

// Archive returns as soon as ctx ends. The shell API takes no context, so an
// upload already sent keeps running on the node and its result is dropped.
func (a *ipfsArchiver) Archive(ctx context.Context, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	type upload struct {
		cid string
		err error
	}
	done := make(chan upload, 1)
	go func() {
		cid, err := a.svc.UploadData(data)
		done <- upload{cid: cid, err: err}
	}()

	select {
	case u := <-done:
		return u.cid, u.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
