// Package uploads turns photos dropped into the upload directory into shared
// images. Files live at <dir>/<customerId|all>/<category>/<name>; the title is
// derived from the file name.
package uploads

import (
	"context"
	"fmt"
	"log"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"car-service/pkg/model"
)

var imageExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

// Registrar stores a shared image; *tracker.Service satisfies it.
type Registrar interface {
	UploadImage(ctx context.Context, img model.SharedImage) (model.SharedImage, error)
}

type Watcher struct {
	dir       string
	urlPrefix string
	reg       Registrar

	mu   sync.Mutex
	seen map[string]bool
}

func NewWatcher(dir, urlPrefix string, reg Registrar) *Watcher {
	if urlPrefix == "" {
		urlPrefix = "/uploads/"
	}
	if !strings.HasSuffix(urlPrefix, "/") {
		urlPrefix += "/"
	}
	return &Watcher{dir: dir, urlPrefix: urlPrefix, reg: reg, seen: map[string]bool{}}
}

// Run registers files already present, then follows new ones until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("create upload dir: %w", err)
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch uploads: %w", err)
	}
	defer fw.Close()

	if err := w.scan(ctx, fw); err != nil {
		return err
	}
	log.Printf("upload watcher started dir=%s", w.dir)
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
				continue
			}
			info, err := os.Stat(ev.Name)
			if err != nil {
				continue
			}
			if info.IsDir() {
				// new customer or category folders are walked so files copied in with them count
				if err := w.addTree(ctx, fw, ev.Name); err != nil {
					log.Printf("upload watch add failed path=%s err=%v", ev.Name, err)
				}
				continue
			}
			w.register(ctx, ev.Name)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			log.Printf("upload watcher error: %v", err)
		}
	}
}

func (w *Watcher) scan(ctx context.Context, fw *fsnotify.Watcher) error {
	return w.addTree(ctx, fw, w.dir)
}

func (w *Watcher) addTree(ctx context.Context, fw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return fw.Add(p)
		}
		w.register(ctx, p)
		return nil
	})
}

func (w *Watcher) register(ctx context.Context, p string) {
	img, ok := w.Describe(p)
	if !ok {
		return
	}
	w.mu.Lock()
	if w.seen[p] {
		w.mu.Unlock()
		return
	}
	w.seen[p] = true
	w.mu.Unlock()
	if _, err := w.reg.UploadImage(ctx, img); err != nil {
		log.Printf("upload register failed path=%s err=%v", p, err)
		w.mu.Lock()
		delete(w.seen, p)
		w.mu.Unlock()
	}
}

// Describe maps a file under the upload dir to the shared image it represents.
// Files outside the <scope>/<category>/<name> layout or with non-image
// extensions are rejected.
func (w *Watcher) Describe(p string) (model.SharedImage, bool) {
	rel, err := filepath.Rel(w.dir, p)
	if err != nil {
		return model.SharedImage{}, false
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	if len(parts) != 3 || parts[0] == ".." {
		return model.SharedImage{}, false
	}
	name := parts[2]
	if strings.HasPrefix(name, ".") || !imageExts[strings.ToLower(path.Ext(name))] {
		return model.SharedImage{}, false
	}
	return model.SharedImage{
		ID:         strings.Join(parts, "/"),
		URL:        w.urlPrefix + strings.Join(parts, "/"),
		Title:      TitleFromFile(name),
		Category:   parts[1],
		CustomerID: parts[0],
	}, true
}

// TitleFromFile turns "oil_change-front.jpg" into "Oil Change Front".
func TitleFromFile(name string) string {
	base := strings.TrimSuffix(name, path.Ext(name))
	words := strings.FieldsFunc(base, func(r rune) bool {
		return r == '_' || r == '-' || r == ' ' || r == '.'
	})
	for i, w := range words {
		if len(w) <= 2 {
			// short tokens are usually acronyms: ac, ev
			words[i] = strings.ToUpper(w)
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
