// Package uploads сохраняет фотографии предложений на локальный диск.
package uploads

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// URLPrefix это путь, по которому сохранённые файлы раздаются статикой
const URLPrefix = "/uploads/"

const maxNameAttempts = 100

var (
	ErrEmptyFile   = errors.New("empty file")
	ErrInvalidPath = errors.New("invalid upload path")

	unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)
)

type DiskStore struct {
	dir string
	now func() time.Time
}

// NewDiskStore создаёт каталог, если его ещё нет
func NewDiskStore(dir string) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload dir: %w", err)
	}
	return &DiskStore{dir: dir, now: time.Now}, nil
}

func (d *DiskStore) Dir() string { return d.dir }

// Sanitize оставляет от имени файла только безопасные символы
func Sanitize(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, `\`, "/"))
	name = unsafeChars.ReplaceAllString(name, "_")
	name = strings.Trim(name, "._")
	if name == "" {
		return "file"
	}
	return name
}

// Save пишет содержимое в файл <unix millis>-<имя> и возвращает публичный путь.
// Файл, записанный не полностью, удаляется.
func (d *DiskStore) Save(original string, r io.Reader) (string, error) {
	name, path, f, err := d.create(Sanitize(original))
	if err != nil {
		return "", err
	}
	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil && n == 0 {
		err = ErrEmptyFile
	}
	if err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("failed to save %s: %w", name, err)
	}
	return URLPrefix + name, nil
}

// Remove удаляет файл по публичному пути, который вернул Save.
// Отсутствующий файл не считается ошибкой.
func (d *DiskStore) Remove(public string) error {
	name := strings.TrimPrefix(public, URLPrefix)
	if name == public || name == "" || name != filepath.Base(name) || name == ".." {
		return fmt.Errorf("%w: %q", ErrInvalidPath, public)
	}
	if err := os.Remove(filepath.Join(d.dir, name)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove %s: %w", name, err)
	}
	return nil
}

// create подбирает свободное имя: файлы с одинаковым именем в одну миллисекунду
// получают числовой суффикс
func (d *DiskStore) create(base string) (string, string, *os.File, error) {
	stamp := strconv.FormatInt(d.now().UnixMilli(), 10)
	for i := 0; i < maxNameAttempts; i++ {
		name := stamp + "-" + base
		if i > 0 {
			name = stamp + "-" + strconv.Itoa(i) + "-" + base
		}
		path := filepath.Join(d.dir, name)
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return "", "", nil, fmt.Errorf("failed to create %s: %w", name, err)
		}
		return name, path, f, nil
	}
	return "", "", nil, fmt.Errorf("no free file name for %s", base)
}
