package services

import (
	"os"
	"testing"

	"go_draft_backend/pkg/logging"
)

func TestMain(m *testing.M) {
	logging.Init()
	os.Exit(m.Run())
}
