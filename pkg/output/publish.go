package output

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/google/renameio/v2"
	"github.com/roleautomator/jamfroles/internal/utils"
	"github.com/roleautomator/jamfroles/pkg/privileges"
	"github.com/tidwall/gjson"
)

const filePerm = 0o644

// pendingFile is the subset of *renameio.PendingFile used while publishing.
type pendingFile interface {
	Write(p []byte) (int, error)
	CloseAtomicallyReplace() error
	Cleanup() error
}

// Publisher writes the four role files as a group.
type Publisher struct {
	Dir     string
	DocURLs []string
	DryRun  bool

	stage   func(path string) (pendingFile, error)
	restore func(path string, data []byte) error
}

// Result summarizes a publish.
type Result struct {
	Updated   string
	Files     []string
	Unchanged bool
}

func NewPublisher(dir string, docURLs []string) *Publisher {
	return &Publisher{
		Dir:     dir,
		DocURLs: docURLs,
		stage: func(path string) (pendingFile, error) {
			return renameio.NewPendingFile(path, renameio.WithPermissions(filePerm))
		},
		restore: func(path string, data []byte) error {
			if data == nil {
				return os.Remove(path)
			}
			return renameio.WriteFile(path, data, filePerm)
		},
	}
}

// Publish renders db and replaces the files in p.Dir. When the content is
// unchanged apart from the timestamp, the previous timestamp is kept so the
// files stay byte-identical. Either all four files are replaced or none are.
func (p *Publisher) Publish(db *privileges.Database) (*Result, error) {
	previous, err := p.readExisting()
	if err != nil {
		return nil, err
	}

	rendered, updated, err := p.render(db, previous)
	if err != nil {
		return nil, err
	}

	res := &Result{Updated: updated.UTC().Format(time.RFC3339), Unchanged: sameFiles(rendered, previous)}
	for _, name := range Files {
		res.Files = append(res.Files, filepath.Join(p.Dir, name))
	}
	if p.DryRun || res.Unchanged {
		return res, nil
	}

	if err := os.MkdirAll(p.Dir, 0o755); err != nil {
		return nil, &privileges.WriteError{Path: p.Dir, Err: err}
	}
	lock, err := utils.NewDirLock(p.Dir)
	if err != nil {
		return nil, &privileges.WriteError{Path: p.Dir, Err: err}
	}
	if err := lock.Lock(); err != nil {
		return nil, &privileges.WriteError{Path: lock.Path(), Err: err}
	}
	defer func() {
		if uerr := lock.Unlock(); uerr != nil {
			utils.Log.Warnf("Could not release %s: %v", lock.Path(), uerr)
		}
	}()

	if err := p.writeGroup(rendered, previous); err != nil {
		return nil, err
	}
	return res, nil
}

func (p *Publisher) render(db *privileges.Database, previous map[string][]byte) (map[string][]byte, time.Time, error) {
	if prev, ok := previous[FullFile]; ok {
		if stamp := gjson.GetBytes(prev, "updated").String(); stamp != "" {
			if t, err := time.Parse(time.RFC3339, stamp); err == nil {
				candidate, err := Render(db, t, p.DocURLs)
				if err != nil {
					return nil, time.Time{}, err
				}
				if bytes.Equal(candidate[FullFile], prev) {
					return candidate, t, nil
				}
			}
		}
	}
	rendered, err := Render(db, db.Updated, p.DocURLs)
	return rendered, db.Updated, err
}

// readExisting returns the current content of every published file that exists.
func (p *Publisher) readExisting() (map[string][]byte, error) {
	out := map[string][]byte{}
	for _, name := range Files {
		path := filepath.Join(p.Dir, name)
		b, err := os.ReadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, &privileges.WriteError{Path: path, Err: err}
		}
		out[name] = b
	}
	return out, nil
}

func (p *Publisher) writeGroup(rendered, previous map[string][]byte) error {
	staged := make([]pendingFile, 0, len(Files))
	discard := func() {
		for _, f := range staged {
			_ = f.Cleanup()
		}
	}

	for _, name := range Files {
		path := filepath.Join(p.Dir, name)
		f, err := p.stage(path)
		if err != nil {
			discard()
			return &privileges.WriteError{Path: path, Err: err}
		}
		staged = append(staged, f)
		if _, err := f.Write(rendered[name]); err != nil {
			discard()
			return &privileges.WriteError{Path: path, Err: err}
		}
	}

	for i, f := range staged {
		path := filepath.Join(p.Dir, Files[i])
		if err := f.CloseAtomicallyReplace(); err != nil {
			for _, g := range staged[i:] {
				_ = g.Cleanup()
			}
			p.rollback(Files[:i], previous)
			return &privileges.WriteError{Path: path, Err: err}
		}
	}
	return nil
}

// rollback puts back the previous content of files that were already replaced.
func (p *Publisher) rollback(names []string, previous map[string][]byte) {
	for _, name := range names {
		path := filepath.Join(p.Dir, name)
		if err := p.restore(path, previous[name]); err != nil {
			utils.Log.Errorf("Could not restore %s: %v", path, err)
		}
	}
}

func sameFiles(a, b map[string][]byte) bool {
	for _, name := range Files {
		prev, ok := b[name]
		if !ok || !bytes.Equal(a[name], prev) {
			return false
		}
	}
	return true
}

// String is used in log lines.
func (r *Result) String() string {
	if r.Unchanged {
		return fmt.Sprintf("%d files unchanged (updated %s)", len(r.Files), r.Updated)
	}
	return fmt.Sprintf("%d files written (updated %s)", len(r.Files), r.Updated)
}
