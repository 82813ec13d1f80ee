package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"sipitali-server/internal/models"
)

// session is the signed-in state persisted between invocations.
type session struct {
	APIURL string      `json:"apiUrl"`
	Token  string      `json:"token"`
	UserID string      `json:"userId"`
	Name   string      `json:"name"`
	Role   models.Role `json:"role"`
}

var errNoSession = errors.New("not signed in, run `dashboard login` first")

func defaultSessionPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "sipitali", "session.json")
}

func loadSession(path string) (*session, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, errNoSession
	}
	if err != nil {
		return nil, err
	}
	var s session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("read session %s: %w", path, err)
	}
	if s.Token == "" {
		return nil, errNoSession
	}
	return &s, nil
}

func saveSession(path string, s *session) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	raw, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0o600)
}

// prompter reads answers line by line from one shared reader.
type prompter struct {
	in  *bufio.Reader
	out io.Writer
}

func newPrompter(in io.Reader, out io.Writer) *prompter {
	return &prompter{in: bufio.NewReader(in), out: out}
}

// ask prints "question: " and returns the trimmed answer.
func (p *prompter) ask(question string) (string, error) {
	fmt.Fprintf(p.out, "%s: ", question)
	line, err := p.in.ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read %s: %w", strings.ToLower(question), err)
	}
	return strings.TrimSpace(line), nil
}

// confirmPrompt asks a yes/no question. Anything but y or yes is a no.
func confirmPrompt(in io.Reader, out io.Writer, question string) bool {
	answer, err := newPrompter(in, out).ask(question + " [y/N]")
	if err != nil {
		return false
	}
	answer = strings.ToLower(answer)
	return answer == "y" || answer == "yes"
}
