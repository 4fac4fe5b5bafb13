package toolchain

import "path/filepath"

// BuildDirName is the directory pup owns inside a project.
const BuildDirName = "build_dist"

// Layout is the on-disk arrangement of build outputs for a project.
type Layout struct {
	Project   string
	BuildDist string
	Dist      string
	Build     string
}

// NewLayout returns the layout rooted at dest/build_dist. dest defaults to
// the project directory.
func NewLayout(project, dest string) Layout {
	if dest == "" {
		dest = project
	}
	root := filepath.Join(dest, BuildDirName)
	system := filepath.Join(root, "pypi_system")
	return Layout{
		Project:   project,
		BuildDist: root,
		Dist:      filepath.Join(system, "dist_pypi"),
		Build:     filepath.Join(system, "build_pypi"),
	}
}
