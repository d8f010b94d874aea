// Package patcher rewrites a single shell array assignment inside a text file,
// leaving every byte outside the assignment untouched.
package patcher

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrAssignmentNotFound is returned when the file has no assignment for the key
	ErrAssignmentNotFound = errors.New("assignment not found")

	// ErrUnterminatedAssignment is returned when the array has no closing parenthesis
	ErrUnterminatedAssignment = errors.New("assignment is not terminated")
)

// Assignment locates an array assignment such as repos_to_migrate=('a' 'b')
type Assignment struct {
	Key string

	// Start is the offset of the key token, End the offset just past ")"
	Start int
	End   int

	// Values are the words currently assigned, with shell quoting removed
	Values []string
}

// Quote wraps s in single quotes so the shell reads it back verbatim
func Quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// FormatAssignment renders key=('a'\n'b'\n...) for the given names
func FormatAssignment(key string, names []string) string {
	quoted := make([]string, len(names))
	for i, name := range names {
		quoted[i] = Quote(name)
	}
	return key + "=(" + strings.Join(quoted, "\n") + ")"
}

// FindAssignment finds the first uncommented key=( ... ) in content
func FindAssignment(content, key string) (*Assignment, error) {
	token := key + "=("

	for offset := 0; offset < len(content); {
		idx := strings.Index(content[offset:], token)
		if idx < 0 {
			break
		}
		start := offset + idx
		offset = start + len(token)

		if !atWordBoundary(content, start) || inComment(content, start) {
			continue
		}

		end, values, err := scanArray(content, offset)
		if err != nil {
			return nil, fmt.Errorf("%w: %s at offset %d", err, key, start)
		}

		return &Assignment{
			Key:    key,
			Start:  start,
			End:    end,
			Values: values,
		}, nil
	}

	return nil, fmt.Errorf("%w: no %s=( ... ) found", ErrAssignmentNotFound, key)
}

// Patch replaces the assignment for key with names and returns the new content
func Patch(content, key string, names []string) (string, *Assignment, error) {
	assignment, err := FindAssignment(content, key)
	if err != nil {
		return "", nil, err
	}

	patched := content[:assignment.Start] + FormatAssignment(key, names) + content[assignment.End:]
	return patched, assignment, nil
}

func atWordBoundary(content string, pos int) bool {
	if pos == 0 {
		return true
	}
	return !isIdentChar(content[pos-1])
}

func isIdentChar(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

// inComment reports whether pos is hidden from the shell on its line, either
// behind a "#" that starts a word or inside a quoted string
func inComment(content string, pos int) bool {
	lineStart := strings.LastIndexByte(content[:pos], '\n') + 1

	var quote byte
	for i := lineStart; i < pos; i++ {
		c := content[i]

		switch {
		case quote == '\'':
			if c == '\'' {
				quote = 0
			}
		case quote == '"':
			if c == '\\' {
				i++
			} else if c == '"' {
				quote = 0
			}
		case c == '\\':
			i++
		case c == '\'' || c == '"':
			quote = c
		case c == '#' && (i == lineStart || isWordBreak(content[i-1])):
			return true
		}
	}

	return quote != 0
}

func isWordBreak(c byte) bool {
	switch c {
	case ' ', '\t', ';', '&', '|', '(', ')':
		return true
	}
	return false
}

// scanArray reads the body of a shell array starting just after "(" and
// returns the offset after the matching ")" along with the unquoted words.
// Parentheses inside quotes, escapes, comments and $( ... ) substitutions do
// not end the array; a substitution is kept as one literal word.
func scanArray(content string, pos int) (int, []string, error) {
	var (
		values []string
		word   strings.Builder
		inWord bool
		depth  int
	)

	flush := func() {
		if inWord {
			values = append(values, word.String())
			word.Reset()
			inWord = false
		}
	}

	for i := pos; i < len(content); i++ {
		c := content[i]

		switch {
		case c == '\'':
			closing := strings.IndexByte(content[i+1:], '\'')
			if closing < 0 {
				return 0, nil, ErrUnterminatedAssignment
			}
			word.WriteString(content[i+1 : i+1+closing])
			inWord = true
			i += closing + 1

		case c == '"':
			inWord = true
			i++
			for ; i < len(content) && content[i] != '"'; i++ {
				if content[i] == '\\' && i+1 < len(content) {
					switch next := content[i+1]; next {
					case '$', '`', '"', '\\':
						word.WriteByte(next)
						i++
						continue
					case '\n':
						i++
						continue
					}
				}
				word.WriteByte(content[i])
			}
			if i >= len(content) {
				return 0, nil, ErrUnterminatedAssignment
			}

		case c == '\\':
			if i+1 >= len(content) {
				return 0, nil, ErrUnterminatedAssignment
			}
			if content[i+1] != '\n' {
				word.WriteByte(content[i+1])
				inWord = true
			}
			i++

		case c == '#' && !inWord:
			newline := strings.IndexByte(content[i:], '\n')
			if newline < 0 {
				return 0, nil, ErrUnterminatedAssignment
			}
			// land on the newline so it is handled as a separator
			i += newline - 1

		case c == '$' && i+1 < len(content) && content[i+1] == '(':
			word.WriteString("$(")
			inWord = true
			depth++
			i++

		case c == '(' && depth > 0:
			word.WriteByte(c)
			depth++

		case c == ')' && depth > 0:
			word.WriteByte(c)
			depth--

		case c == ')':
			flush()
			return i + 1, values, nil

		case depth > 0:
			word.WriteByte(c)

		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			flush()

		default:
			word.WriteByte(c)
			inWord = true
		}
	}

	return 0, nil, ErrUnterminatedAssignment
}

// Options controls how PatchFile applies changes
type Options struct {
	DryRun bool
}

// FileResult describes the outcome of patching a file
type FileResult struct {
	Path     string
	Previous []string
	Changed  bool
	Written  bool
}

// PatchFile rewrites the assignment for key in the file at path. The file is
// only written when the assignment actually changes and DryRun is false.
func PatchFile(path, key string, names []string, opts Options) (*FileResult, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat target file: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read target file: %w", err)
	}

	content := string(data)
	patched, assignment, err := Patch(content, key, names)
	if err != nil {
		return nil, fmt.Errorf("failed to patch %s: %w", path, err)
	}

	result := &FileResult{
		Path:     path,
		Previous: assignment.Values,
		Changed:  patched != content,
	}

	if !result.Changed || opts.DryRun {
		return result, nil
	}

	if err := writeFileAtomic(path, []byte(patched), info.Mode().Perm()); err != nil {
		return nil, fmt.Errorf("failed to write target file: %w", err)
	}
	result.Written = true

	return result, nil
}

// writeFileAtomic replaces path by renaming a fully written sibling temp file
func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	// Replace the link target rather than the link itself
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(resolved), "."+filepath.Base(resolved)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		return err
	}

	return os.Rename(tmpName, resolved)
}
