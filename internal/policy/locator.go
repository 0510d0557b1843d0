package policy

import (
	"fmt"
	"os"
	"strings"

	"github.com/regoguard/regoguard/internal/domain/control"
	apperrors "github.com/regoguard/regoguard/internal/pkg/errors"
)

// ControlMarker is the comment prefix that opens a control block.
const ControlMarker = "# CONTROL:"

// headerPrefixes are the fixed metadata header lines of a control
// block. Toggling preserves these verbatim.
var headerPrefixes = []string{
	"# CONTROL:",
	"# TITLE:",
	"# SEVERITY:",
	"# FRAMEWORKS:",
	"# STATUS:",
	"# OPTIONAL:",
	"# CATEGORY:",
	"# PREREQUISITES:",
	"# IMPACT:",
}

// Block is the line span of one control implementation inside a policy
// file. Lines are 1-based and the span is inclusive.
type Block struct {
	ControlID string
	StartLine int
	EndLine   int
}

// IsHeaderLine reports whether a line belongs to the fixed metadata
// header of a control block.
func IsHeaderLine(line string) bool {
	trimmed := strings.TrimSpace(line)
	for _, p := range headerPrefixes {
		if strings.HasPrefix(trimmed, p) {
			return true
		}
	}
	return false
}

// markerID extracts the control id from a marker line, or "" when the
// line is not a marker.
func markerID(line string) string {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, ControlMarker) {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(trimmed, ControlMarker))
}

// Index scans lines once and returns every control block in order of
// appearance. A block ends immediately before the next marker or at
// end-of-file.
func Index(lines []string) []Block {
	var blocks []Block
	for i, line := range lines {
		id := markerID(line)
		if id == "" {
			continue
		}
		if n := len(blocks); n > 0 {
			blocks[n-1].EndLine = i // previous block ends on the line before
		}
		blocks = append(blocks, Block{ControlID: id, StartLine: i + 1})
	}
	if n := len(blocks); n > 0 {
		blocks[n-1].EndLine = len(lines)
	}
	return blocks
}

// Locate finds the block for one control id. Two identical markers in
// the same file are a hard error.
func Locate(lines []string, path, id string) (Block, error) {
	var found []Block
	for _, b := range Index(lines) {
		if b.ControlID == id {
			found = append(found, b)
		}
	}
	switch len(found) {
	case 0:
		return Block{}, apperrors.BlockNotFound(id, path)
	case 1:
		return found[0], nil
	default:
		return Block{}, apperrors.MalformedPolicyFile(path,
			fmt.Sprintf("control %s marked %d times", id, len(found)))
	}
}

// BlockStatus reports ENABLED when the span contains at least one
// non-blank, non-comment line outside the metadata header.
func BlockStatus(lines []string, b Block) string {
	for i := b.StartLine - 1; i < b.EndLine && i < len(lines); i++ {
		trimmed := strings.TrimSpace(lines[i])
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		return control.StatusEnabled
	}
	return control.StatusDisabled
}

// ReadLines loads a policy file split into lines, remembering whether
// the file ended with a newline so rewrites can preserve it.
func ReadLines(path string) ([]string, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, apperrors.New(apperrors.ErrCodeBlockNotFound,
				fmt.Sprintf("policy file not found: %s", path))
		}
		return nil, false, apperrors.Internal("failed to read policy file", err)
	}
	text := string(data)
	trailing := strings.HasSuffix(text, "\n")
	if trailing {
		text = strings.TrimSuffix(text, "\n")
	}
	if text == "" {
		return nil, trailing, nil
	}
	return strings.Split(text, "\n"), trailing, nil
}

// LocateFile is the disk-backed form of Locate.
func LocateFile(path, id string) (Block, error) {
	lines, _, err := ReadLines(path)
	if err != nil {
		return Block{}, err
	}
	return Locate(lines, path, id)
}

// FileStatus reports the toggle state of one control in a policy file.
func FileStatus(path, id string) (string, error) {
	lines, _, err := ReadLines(path)
	if err != nil {
		return "", err
	}
	b, err := Locate(lines, path, id)
	if err != nil {
		return "", err
	}
	return BlockStatus(lines, b), nil
}
