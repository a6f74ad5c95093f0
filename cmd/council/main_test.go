package main

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rpggio/council/internal/sqlite"
	"github.com/stretchr/testify/require"
)

func TestParseLogLevel(t *testing.T) {
	require.Equal(t, slog.LevelDebug, parseLogLevel("debug"))
	require.Equal(t, slog.LevelWarn, parseLogLevel("warn"))
	require.Equal(t, slog.LevelError, parseLogLevel("error"))
	require.Equal(t, slog.LevelInfo, parseLogLevel("verbose"))
}

func TestLogFileWriterTruncatesFromFront(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "council.log")
	w, err := newSizedLogFileWriter(path, 10, 4)
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })

	_, err = w.Write([]byte("abcdefgh"))
	require.NoError(t, err)
	_, err = w.Write([]byte("ijk"))
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "hijk", string(data))

	_, err = w.Write([]byte("lm"))
	require.NoError(t, err)
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "hijklm", string(data))
}

func TestOpenDBAndCreateAPIKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "council.db")
	db, err := openDB(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	repo := sqlite.NewAPIKeyRepository(db)
	var out bytes.Buffer
	require.NoError(t, createAPIKey(context.Background(), &out, repo, "0x00000000000000000000000000000000000000a1", "laptop"))

	var token string
	for _, line := range strings.Split(out.String(), "\n") {
		if strings.HasPrefix(line, "token:") {
			token = strings.TrimSpace(strings.TrimPrefix(line, "token:"))
		}
	}
	require.NotEmpty(t, token)

	addr, err := repo.ResolveIdentity(context.Background(), token)
	require.NoError(t, err)
	require.Equal(t, common.HexToAddress("0xa1"), addr)

	require.Error(t, createAPIKey(context.Background(), &out, repo, "alice", ""))
}
