package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Session is the remote session the CLI is currently attached to.
type Session struct {
	SessionID string `json:"session_id"`
	Token     string `json:"token"`
	BaseURL   string `json:"base_url"`
}

func baseDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(home, ".dorm")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", err
	}
	return dir, nil
}

func sessionFile() (string, error) {
	dir, err := baseDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "session.json"), nil
}

func SaveSession(s Session) error {
	path, err := sessionFile()
	if err != nil {
		return err
	}
	body, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, body, 0o600); err != nil {
		return err
	}
	return nil
}

func LoadSession() (Session, error) {
	path, err := sessionFile()
	if err != nil {
		return Session{}, err
	}
	body, err := os.ReadFile(path)
	if err != nil {
		return Session{}, err
	}
	var s Session
	if err := json.Unmarshal(body, &s); err != nil {
		return Session{}, err
	}
	if strings.TrimSpace(s.SessionID) == "" || strings.TrimSpace(s.Token) == "" {
		return Session{}, fmt.Errorf("no remote session found, run `dorm new` first")
	}
	return s, nil
}

func ClearSession() error {
	path, err := sessionFile()
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	return os.Remove(path)
}
