package utils

import (
	"os"
	"path/filepath"
)

func GetPathInfo(relPath string) (fullPath string, parentDir string, err error) {
	// Convert to absolute path (resolves ../../ and cleans the path)
	fullPath, err = filepath.Abs(relPath)
	if err != nil {
		return "", "", err
	}

	// Get the directory containing the file
	parentDir = filepath.Dir(fullPath)

	return fullPath, parentDir, nil
}

// ResolveSource treats arg as a path when it names an existing regular file
// and returns that file's contents; otherwise arg is the program text itself.
// origin is the absolute file path, or "" for inline source.
func ResolveSource(arg string) (src string, origin string, err error) {
	fullPath, _, err := GetPathInfo(arg)
	if err != nil {
		return arg, "", nil
	}
	info, err := os.Stat(fullPath)
	if err != nil || !info.Mode().IsRegular() {
		return arg, "", nil
	}

	data, err := os.ReadFile(fullPath)
	if err != nil {
		return "", fullPath, err
	}
	return string(data), fullPath, nil
}
