package workflow

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

// Step identifies a numbered pipeline step.
type Step int

const (
	StepOptions Step = iota + 1
	StepManifest
	StepVerify
	StepFix
	StepBuild
	StepUninstall
	StepInstallLocal
	StepTestLocal
	StepUninstallLocal
	StepUpload
	StepInstallRemote
	StepConfirm
	StepTag
)

var stepTitles = map[Step]string{
	StepOptions:        "User Options",
	StepManifest:       "Initializing Setup File Data",
	StepVerify:         "Verifying Package Name",
	StepFix:            "Fixing and Optimizing",
	StepBuild:          "Building Wheel",
	StepUninstall:      "Uninstalling Existing Package",
	StepInstallLocal:   "Installing Locally",
	StepTestLocal:      "Testing Locally Installed Package",
	StepUninstallLocal: "Uninstalling Local Package",
	StepUpload:         "Uploading to %s",
	StepInstallRemote:  "Installing from %s",
	StepConfirm:        "Confirming Publication",
	StepTag:            "Tagging Release",
}

// Title returns the step's banner text; indexName fills the upload and
// install steps.
func (s Step) Title(indexName string) string {
	t, ok := stepTitles[s]
	if !ok {
		return fmt.Sprintf("Step %d", int(s))
	}
	if s == StepUpload || s == StepInstallRemote {
		return fmt.Sprintf(t, indexName)
	}
	return t
}

// StepResult records what happened to one step.
type StepResult struct {
	Step    Step
	Title   string
	Skipped bool
}

var (
	bannerColor = color.New(color.FgCyan, color.Bold)
	skipColor   = color.New(color.Faint)
	okColor     = color.New(color.FgGreen)
	warnColor   = color.New(color.FgYellow)
)

func banner(w io.Writer, s Step, title string) {
	_, _ = bannerColor.Fprintf(w, "----%d %s----\n", int(s), title)
}

func skipped(w io.Writer, s Step, title string) {
	_, _ = skipColor.Fprintf(w, "----%d %s (skipped)----\n", int(s), title)
}
