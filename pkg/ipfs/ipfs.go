package ipfs

import (
	"bytes"
	"fmt"

	shell "github.com/ipfs/go-ipfs-api"

	"github.com/theblitlabs/tinyml-runner/pkg/logger"
)

const component = "ipfs"

// Service archives job datasets on an IPFS node.
type Service struct {
	shell *shell.Shell
}

// Config represents the IPFS service configuration
type Config struct {
	APIEndpoint string // IPFS API endpoint (e.g., "localhost:5001")
}

// New creates a new IPFS service instance and checks the node is reachable.
func New(config Config) (*Service, error) {
	if config.APIEndpoint == "" {
		config.APIEndpoint = "localhost:5001"
	}

	sh := shell.NewShell(config.APIEndpoint)

	if _, err := sh.ID(); err != nil {
		return nil, fmt.Errorf("failed to connect to IPFS node: %w", err)
	}

	return &Service{shell: sh}, nil
}

// UploadData adds and pins data, returning its CID.
func (s *Service) UploadData(data []byte) (string, error) {
	log := logger.WithComponent(component)

	cid, err := s.shell.Add(bytes.NewReader(data), shell.Pin(true), shell.CidVersion(1))
	if err != nil {
		log.Error().Err(err).Msg("Failed to upload data to IPFS")
		return "", fmt.Errorf("failed to upload data to IPFS: %w", err)
	}

	log.Info().Str("cid", cid).Int("bytes", len(data)).Msg("Data uploaded to IPFS")
	return cid, nil
}
