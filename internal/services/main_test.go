package services

import (
	"os"
	"testing"

	"github.com/theblitlabs/tinyml-runner/pkg/logger"
)

func TestMain(m *testing.M) {
	logger.InitWithMode(logger.LogModeTest)
	os.Exit(m.Run())
}
