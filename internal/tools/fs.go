package tools

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// FilesystemToolName is the name plans use for the built-in filesystem tool.
const FilesystemToolName = "filesystem"

// maxSearchMatches stops search_file_content from flooding the history.
const maxSearchMatches = 200

// FilesystemProvider works on files below a workspace root. Paths that resolve outside the
// root are rejected as invalid arguments.
type FilesystemProvider struct {
	root     string
	handlers map[string]func(ctx context.Context, args map[string]any) (any, error)
}

var _ Provider = (*FilesystemProvider)(nil)

// NewFilesystemProvider roots the provider at workspace, which must be an existing directory.
func NewFilesystemProvider(workspace string) (*FilesystemProvider, error) {
	root, err := filepath.Abs(workspace)
	if err != nil {
		return nil, fmt.Errorf("error resolving workspace %q: %w", workspace, err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("error opening workspace %q: %w", workspace, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("workspace %q is not a directory", workspace)
	}

	p := &FilesystemProvider{root: root}
	p.handlers = map[string]func(context.Context, map[string]any) (any, error){
		"list_directory":      p.listDirectory,
		"read_file":           p.readFile,
		"write_file":          p.writeFile,
		"replace":             p.replace,
		"delete_path":         p.deletePath,
		"search_file_content": p.searchFileContent,
		"glob":                p.glob,
	}
	return p, nil
}

func (p *FilesystemProvider) Name() string { return FilesystemToolName }

func (p *FilesystemProvider) Description() string {
	return "Reads, searches and edits files inside the workspace " + p.root + ". Paths are relative to the workspace."
}

func (p *FilesystemProvider) Root() string { return p.root }

func (p *FilesystemProvider) Actions() []Action {
	return []Action{
		{
			Name:        "list_directory",
			Description: "Lists files and subdirectories of a directory.",
			Parameters:  schema(nil, map[string]string{"path": "Directory to list. Defaults to the workspace root."}),
		},
		{
			Name:        "read_file",
			Description: "Reads the entire content of a file.",
			Parameters:  schema([]string{"path"}, map[string]string{"path": "File to read."}),
		},
		{
			Name:        "write_file",
			Description: "Writes content to a file, creating parent directories and overwriting existing content.",
			Parameters: schema([]string{"path", "content"}, map[string]string{
				"path":    "File to write.",
				"content": "Content to write.",
			}),
			RequiresConfirmation: true,
		},
		{
			Name:        "replace",
			Description: "Replaces the first occurrence of old_string with new_string in a file.",
			Parameters: schema([]string{"path", "old_string", "new_string"}, map[string]string{
				"path":       "File to modify.",
				"old_string": "Text to find.",
				"new_string": "Replacement text.",
			}),
			RequiresConfirmation: true,
		},
		{
			Name:                 "delete_path",
			Description:          "Deletes a file or an empty directory.",
			Parameters:           schema([]string{"path"}, map[string]string{"path": "File or directory to delete."}),
			RequiresConfirmation: true,
		},
		{
			Name:        "search_file_content",
			Description: "Recursively searches files for lines matching a regular expression.",
			Parameters: schema([]string{"pattern"}, map[string]string{
				"path":    "Directory to search. Defaults to the workspace root.",
				"pattern": "Regular expression to match against each line.",
			}),
		},
		{
			Name:        "glob",
			Description: "Finds files matching a glob pattern such as \"internal/**/*.go\".",
			Parameters: schema([]string{"pattern"}, map[string]string{
				"path":    "Base directory. Defaults to the workspace root.",
				"pattern": "Glob pattern matched against paths relative to the base directory.",
			}),
		},
	}
}

func (p *FilesystemProvider) Execute(ctx context.Context, action string, args map[string]any) (any, error) {
	handler, ok := p.handlers[action]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAction, action)
	}
	return handler(ctx, args)
}

// resolve maps a workspace-relative path to an absolute path inside the root.
func (p *FilesystemProvider) resolve(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		path = "."
	}
	var abs string
	if filepath.IsAbs(path) {
		abs = filepath.Clean(path)
	} else {
		abs = filepath.Join(p.root, path)
	}
	rel, err := filepath.Rel(p.root, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", invalidArgs("path %q is outside the workspace", path)
	}
	return abs, nil
}

func (p *FilesystemProvider) display(abs string) string {
	rel, err := filepath.Rel(p.root, abs)
	if err != nil {
		return abs
	}
	return filepath.ToSlash(rel)
}

type pathArgs struct {
	Path string `json:"path"`
}

func (p *FilesystemProvider) listDirectory(_ context.Context, args map[string]any) (any, error) {
	var in pathArgs
	if err := decodeArgs("list_directory", args, &in); err != nil {
		return nil, err
	}
	dir, err := p.resolve(in.Path)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("error reading directory %q: %w", p.display(dir), err)
	}

	var out strings.Builder
	fmt.Fprintf(&out, "Contents of %s:\n", p.display(dir))
	for _, entry := range entries {
		info, err := entry.Info()
		if err != nil {
			continue
		}
		name := entry.Name()
		if entry.IsDir() {
			name += "/"
		}
		fmt.Fprintf(&out, "%-12s %-10d %s %s\n", info.Mode(), info.Size(), info.ModTime().Format("2006-01-02 15:04:05"), name)
	}
	return out.String(), nil
}

func (p *FilesystemProvider) readFile(_ context.Context, args map[string]any) (any, error) {
	var in pathArgs
	if err := decodeArgs("read_file", args, &in); err != nil {
		return nil, err
	}
	if in.Path == "" {
		return nil, invalidArgs("read_file requires path")
	}
	file, err := p.resolve(in.Path)
	if err != nil {
		return nil, err
	}
	content, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("error reading file %q: %w", in.Path, err)
	}
	return string(content), nil
}

type writeArgs struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

func (p *FilesystemProvider) writeFile(_ context.Context, args map[string]any) (any, error) {
	var in writeArgs
	if err := decodeArgs("write_file", args, &in); err != nil {
		return nil, err
	}
	if in.Path == "" {
		return nil, invalidArgs("write_file requires path")
	}
	file, err := p.resolve(in.Path)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(file), 0o755); err != nil {
		return nil, fmt.Errorf("error creating parent of %q: %w", in.Path, err)
	}
	if err := os.WriteFile(file, []byte(in.Content), 0o644); err != nil {
		return nil, fmt.Errorf("error writing file %q: %w", in.Path, err)
	}
	return fmt.Sprintf("Wrote %d bytes to %s", len(in.Content), p.display(file)), nil
}

type replaceArgs struct {
	Path      string `json:"path"`
	OldString string `json:"old_string"`
	NewString string `json:"new_string"`
}

func (p *FilesystemProvider) replace(_ context.Context, args map[string]any) (any, error) {
	var in replaceArgs
	if err := decodeArgs("replace", args, &in); err != nil {
		return nil, err
	}
	if in.Path == "" || in.OldString == "" {
		return nil, invalidArgs("replace requires path and old_string")
	}
	file, err := p.resolve(in.Path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("error reading file %q: %w", in.Path, err)
	}
	content := string(data)
	if !strings.Contains(content, in.OldString) {
		return nil, fmt.Errorf("old_string not found in %q", in.Path)
	}
	content = strings.Replace(content, in.OldString, in.NewString, 1)
	if err := os.WriteFile(file, []byte(content), 0o644); err != nil {
		return nil, fmt.Errorf("error writing file %q: %w", in.Path, err)
	}
	return "Replaced first occurrence in " + p.display(file), nil
}

func (p *FilesystemProvider) deletePath(_ context.Context, args map[string]any) (any, error) {
	var in pathArgs
	if err := decodeArgs("delete_path", args, &in); err != nil {
		return nil, err
	}
	if in.Path == "" {
		return nil, invalidArgs("delete_path requires path")
	}
	target, err := p.resolve(in.Path)
	if err != nil {
		return nil, err
	}
	if target == p.root {
		return nil, invalidArgs("refusing to delete the workspace root")
	}
	if err := os.Remove(target); err != nil {
		return nil, fmt.Errorf("error deleting %q: %w", in.Path, err)
	}
	return "Deleted " + p.display(target), nil
}

type searchArgs struct {
	Path    string `json:"path"`
	Pattern string `json:"pattern"`
}

func (p *FilesystemProvider) searchFileContent(ctx context.Context, args map[string]any) (any, error) {
	var in searchArgs
	if err := decodeArgs("search_file_content", args, &in); err != nil {
		return nil, err
	}
	if in.Pattern == "" {
		return nil, invalidArgs("search_file_content requires pattern")
	}
	re, err := regexp.Compile(in.Pattern)
	if err != nil {
		return nil, invalidArgs("bad pattern: %v", err)
	}
	base, err := p.resolve(in.Path)
	if err != nil {
		return nil, err
	}

	var (
		out     strings.Builder
		matches int
	)
	errLimit := errors.New("match limit reached")
	err = filepath.WalkDir(base, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		n, err := grepFile(path, p.display(path), re, &out, maxSearchMatches-matches)
		matches += n
		if err != nil {
			fmt.Fprintf(&out, "could not read %s: %v\n", p.display(path), err)
		}
		if matches >= maxSearchMatches {
			return errLimit
		}
		return nil
	})
	if err != nil && !errors.Is(err, errLimit) {
		return nil, fmt.Errorf("error searching %q: %w", p.display(base), err)
	}
	if matches == 0 {
		return "No matches found.", nil
	}
	if errors.Is(err, errLimit) {
		fmt.Fprintf(&out, "(stopped after %d matches)\n", maxSearchMatches)
	}
	return out.String(), nil
}

func grepFile(path, name string, re *regexp.Regexp, out *strings.Builder, limit int) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	found := 0
	scanner := bufio.NewScanner(f)
	for line := 1; scanner.Scan() && found < limit; line++ {
		if re.MatchString(scanner.Text()) {
			found++
			fmt.Fprintf(out, "%s:%d: %s\n", name, line, scanner.Text())
		}
	}
	return found, scanner.Err()
}

type globArgs struct {
	Path    string `json:"path"`
	Pattern string `json:"pattern"`
}

func (p *FilesystemProvider) glob(ctx context.Context, args map[string]any) (any, error) {
	var in globArgs
	if err := decodeArgs("glob", args, &in); err != nil {
		return nil, err
	}
	if in.Pattern == "" {
		return nil, invalidArgs("glob requires pattern")
	}
	if !doublestar.ValidatePattern(in.Pattern) {
		return nil, invalidArgs("bad glob pattern %q", in.Pattern)
	}
	base, err := p.resolve(in.Path)
	if err != nil {
		return nil, err
	}

	matches := []string{}
	err = filepath.WalkDir(base, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(base, path)
		if err != nil {
			return err
		}
		if ok, _ := doublestar.Match(in.Pattern, filepath.ToSlash(rel)); ok {
			matches = append(matches, p.display(path))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("error walking %q: %w", p.display(base), err)
	}
	return matches, nil
}
