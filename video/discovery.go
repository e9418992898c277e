package video

import (
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
)

// FindInputFilesRecursively scans a directory for convertible videos,
// skipping output left behind by interrupted renders.
func FindInputFilesRecursively(directory string) ([]string, error) {
	var files []string
	var err error

	// Use fd if available for better performance, otherwise fall back to filepath.WalkDir
	if isFdAvailable() {
		files, err = findInputFilesWithFd(directory)
		if err != nil {
			// If fd fails, fall back to the standard method
			files, err = findInputFilesWithWalkDir(directory)
		}
	} else {
		files, err = findInputFilesWithWalkDir(directory)
	}
	if err != nil {
		return nil, err
	}

	sort.Strings(files)
	return files, nil
}

// ExpandInputs resolves command line arguments to input files. Directories
// are searched recursively; files are kept as given.
func ExpandInputs(args []string) ([]string, error) {
	var files []string
	seen := make(map[string]bool)

	for _, arg := range args {
		fi, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}

		found := []string{arg}
		if fi.IsDir() {
			if found, err = FindInputFilesRecursively(arg); err != nil {
				return nil, err
			}
		}

		for _, f := range found {
			if !seen[f] {
				seen[f] = true
				files = append(files, f)
			}
		}
	}

	return files, nil
}

// isFdAvailable checks if the 'fd' command is available in PATH
func isFdAvailable() bool {
	_, err := exec.LookPath("fd")
	return err == nil
}

// findInputFilesWithWalkDir uses filepath.WalkDir to find input files (fallback method)
func findInputFilesWithWalkDir(directory string) ([]string, error) {
	var files []string

	err := filepath.WalkDir(directory, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			return nil
		}

		if IsInputFile(path) && !IsIntermediate(path) {
			files = append(files, path)
		}

		return nil
	})

	return files, err
}

// findInputFilesWithFd uses the 'fd' command to efficiently find input files
func findInputFilesWithFd(directory string) ([]string, error) {
	exts := make([]string, len(inputExtensions))
	for i, ext := range inputExtensions {
		exts[i] = strings.TrimPrefix(ext, ".")
	}
	extPattern := "\\." + strings.Join(exts, "$|\\.") + "$"

	cmd := exec.Command("fd", extPattern, "--type", "f", "--ignore-case", directory)
	output, err := cmd.Output()
	if err != nil {
		return nil, err
	}

	lines := strings.Split(strings.TrimSpace(string(output)), "\n")
	var files []string
	for _, line := range lines {
		if line != "" && IsInputFile(line) && !IsIntermediate(line) {
			files = append(files, line)
		}
	}

	return files, nil
}
