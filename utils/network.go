package utils

import (
	"path/filepath"
	"strings"

	"github.com/shirou/gopsutil/v4/disk"
)

// networkFilesystems are mount types served over the network.
var networkFilesystems = map[string]bool{
	"nfs": true, "nfs4": true, "cifs": true, "smbfs": true, "smb3": true,
	"afpfs": true, "webdav": true, "davfs": true, "fuse.sshfs": true,
	"fuse.rclone": true, "9p": true,
}

// partitions is replaced in tests.
var partitions = func() ([]disk.PartitionStat, error) {
	return disk.Partitions(false)
}

// IsNetworkDrive detects if a capture lives on a network-mounted drive. The
// mount table decides when the path falls under a known mount point; path
// conventions are the fallback.
func IsNetworkDrive(filePath string) bool {
	// Windows UNC paths, before converting to absolute path
	if strings.HasPrefix(filePath, "//") || strings.HasPrefix(filePath, "\\\\") {
		return true
	}

	absPath, err := filepath.Abs(filePath)
	if err != nil {
		return false
	}

	if fstype, ok := mountFilesystem(absPath); ok && fstype != "" {
		if networkFilesystems[strings.ToLower(fstype)] {
			return true
		}
	}

	// Common network mount prefixes on different platforms
	for _, prefix := range []string{"/mnt/", "/media/", "/Volumes/"} {
		if strings.HasPrefix(absPath, prefix) {
			return true
		}
	}

	lowerPath := strings.ToLower(absPath)
	for _, indicator := range []string{"nfs", "cifs", "smb", "webdav", "ftp", "sftp"} {
		if strings.Contains(lowerPath, indicator) {
			return true
		}
	}

	return false
}

// mountFilesystem returns the filesystem type of the deepest mount point
// containing path.
func mountFilesystem(path string) (string, bool) {
	parts, err := partitions()
	if err != nil {
		return "", false
	}

	best := -1
	fstype := ""
	for _, p := range parts {
		mp := p.Mountpoint
		if mp == "" || len(mp) <= best {
			continue
		}
		if path == mp || strings.HasPrefix(path, strings.TrimSuffix(mp, string(filepath.Separator))+string(filepath.Separator)) {
			best = len(mp)
			fstype = p.Fstype
		}
	}
	return fstype, best >= 0
}

// ThumbnailWorkerLimit caps concurrent frame extraction at one when any
// input lives on a network drive.
func ThumbnailWorkerLimit(files []string, limit int) int {
	for _, f := range files {
		if IsNetworkDrive(f) {
			return 1
		}
	}
	return max(1, limit)
}
