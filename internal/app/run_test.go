package app

import (
	"bytes"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestRun_WithMissingEnv_ReturnsError(t *testing.T) {
	clearRequiredEnv(t)

	var buf bytes.Buffer
	err := Run(&buf, []string{"serve"})
	if err == nil {
		t.Fatal("Run with missing env should return error")
	}
}

func TestRun_WithFallbackSecret_ReturnsError(t *testing.T) {
	setTestEnv(t)
	t.Setenv("JWT_SECRET", "fallback-secret-change-me")

	var buf bytes.Buffer
	if err := Run(&buf, nil); err == nil {
		t.Fatal("Run with fallback JWT secret should return error")
	}
}

// TestRun_ServeCommand_FailsWithoutDatabase はDBに接続できない場合にserveがエラーで終了することを検証する。
func TestRun_ServeCommand_FailsWithoutDatabase(t *testing.T) {
	setTestEnv(t)

	var buf bytes.Buffer
	err := Run(&buf, []string{"serve"})
	if err == nil || !strings.Contains(err.Error(), "failed to connect to database") {
		t.Fatalf("Run(serve) error = %v, want database connection error", err)
	}
}

func TestRun_MigrateCommand_FailsWithoutDatabase(t *testing.T) {
	setTestEnv(t)

	var buf bytes.Buffer
	err := Run(&buf, []string{"migrate"})
	if err == nil || !strings.Contains(err.Error(), "migration failed") {
		t.Fatalf("Run(migrate) error = %v, want migration error", err)
	}
}

func TestRun_HashPassword_PrintsBcryptHash(t *testing.T) {
	// 設定なしでも実行できること
	clearRequiredEnv(t)

	var buf bytes.Buffer
	if err := Run(&buf, []string{"hash-password", "minha-senha"}); err != nil {
		t.Fatalf("Run(hash-password) error = %v", err)
	}

	hash := strings.TrimSpace(buf.String())
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte("minha-senha")); err != nil {
		t.Errorf("printed hash does not match password: %v", err)
	}
}

func TestRun_HashPassword_RequiresArgument(t *testing.T) {
	var buf bytes.Buffer
	err := Run(&buf, []string{"hash-password"})
	if err == nil || !strings.Contains(err.Error(), "usage") {
		t.Fatalf("Run(hash-password) error = %v, want usage error", err)
	}
}

func TestRun_Healthcheck_FailsWhenServerDown(t *testing.T) {
	t.Setenv("SERVER_PORT", "1")

	if err := Run(nil, []string{"healthcheck"}); err == nil {
		t.Fatal("healthcheck against a closed port should fail")
	}
}
