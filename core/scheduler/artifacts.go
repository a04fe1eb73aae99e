package scheduler

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/kilianp07/gridsim/core/logger"
)

const (
	mainLogName     = "logs.txt"
	snapshotSuffix  = ".xiidm"
	ptdfMatrixName  = "PTDF_matrix.csv"
	lodfMatrixName  = "LODF_matrix.csv"
	artifactDirPerm = 0o755
)

var detailLogPattern = regexp.MustCompile(`^metrix(\d{3})\.log$`)

// ErrAmbiguousOutput is matched by *AmbiguousOutputError.
var ErrAmbiguousOutput = errors.New("ambiguous output")

// AmbiguousOutputError reports several candidate files where one was
// expected.
type AmbiguousOutputError struct {
	Pattern string
	Matches []string
}

func (e *AmbiguousOutputError) Error() string {
	return fmt.Sprintf("%s: %d files match %s: %s", ErrAmbiguousOutput, len(e.Matches), e.Pattern, strings.Join(e.Matches, ", "))
}

func (e *AmbiguousOutputError) Unwrap() error { return ErrAmbiguousOutput }

// ArtifactConfig selects the solver outputs copied out of a scratch
// directory. Nothing is copied when Dir is empty.
type ArtifactConfig struct {
	Dir        string `json:"dir"`
	MainLog    bool   `json:"main_log"`
	DetailLogs bool   `json:"detail_logs"`
	Matrices   bool   `json:"matrices"`
	// NetworkID enables retrieval of the network snapshot <NetworkID>*.xiidm.
	NetworkID string `json:"network_id"`
}

func (c ArtifactConfig) Enabled() bool { return c.Dir != "" }

type artifactCollector struct {
	cfg ArtifactConfig
	log logger.Logger
}

// collect copies the configured artifacts of t from dir. Copy failures are
// logged; only an ambiguous snapshot is returned as an error.
func (a artifactCollector) collect(dir string, t Task) ([]string, error) {
	if !a.cfg.Enabled() {
		return nil, nil
	}
	if err := os.MkdirAll(a.cfg.Dir, artifactDirPerm); err != nil {
		a.log.Errorf("cannot create artifact directory %s: %v", a.cfg.Dir, err)
		return nil, nil
	}
	suffix := fmt.Sprintf("_%d_%d", t.Version, t.Chunk)
	var copied []string
	keep := func(src, name string) {
		dst := filepath.Join(a.cfg.Dir, name)
		if err := copyFile(src, dst); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				a.log.Errorf("cannot copy %s for %s: %v", filepath.Base(src), t, err)
			}
			return
		}
		copied = append(copied, dst)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		a.log.Errorf("cannot list scratch directory of %s: %v", t, err)
		return nil, nil
	}

	if a.cfg.MainLog {
		keep(filepath.Join(dir, mainLogName), "log"+suffix+".txt")
	}
	if a.cfg.Matrices {
		for _, name := range []string{ptdfMatrixName, lodfMatrixName} {
			keep(filepath.Join(dir, name), strings.TrimSuffix(name, ".csv")+suffix+".csv")
		}
	}
	var snapshots []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if a.cfg.DetailLogs {
			if m := detailLogPattern.FindStringSubmatch(name); m != nil {
				keep(filepath.Join(dir, name), "metrix"+m[1]+suffix+".log")
			}
		}
		if a.cfg.NetworkID != "" && strings.HasPrefix(name, a.cfg.NetworkID) && strings.HasSuffix(name, snapshotSuffix) {
			snapshots = append(snapshots, name)
		}
	}

	if a.cfg.NetworkID == "" {
		return copied, nil
	}
	switch len(snapshots) {
	case 0:
		a.log.Warnf("no network snapshot %s*%s found for %s", a.cfg.NetworkID, snapshotSuffix, t)
	case 1:
		keep(filepath.Join(dir, snapshots[0]), "network"+suffix+snapshotSuffix)
	default:
		sort.Strings(snapshots)
		return copied, &AmbiguousOutputError{Pattern: a.cfg.NetworkID + "*" + snapshotSuffix, Matches: snapshots}
	}
	return copied, nil
}

func copyFile(src, dst string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); err == nil {
			err = cerr
		}
	}()
	_, err = io.Copy(out, in)
	return err
}
