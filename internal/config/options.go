package config

import (
	"os"

	"github.com/joho/godotenv"
)

// Options is a read-only accessor for provider settings. Values are
// resolved on every Get so operators can reconfigure a provider
// without restarting the service.
type Options interface {
	Get(key string) string
}

// FileOptions layers an on-disk dotenv file over the process
// environment. Values from disk take priority, so a deployment can
// pin settings in a file regardless of what the environment carries.
type FileOptions struct {
	path string
}

// NewFileOptions points the accessor at a dotenv file. The file may
// be absent; then only the environment is consulted.
func NewFileOptions(path string) *FileOptions {
	return &FileOptions{path: path}
}

func (o *FileOptions) Get(key string) string {
	if o.path != "" {
		// Re-read per lookup: option reads happen once per auth
		// request and the file is expected to be tiny.
		if disk, err := godotenv.Read(o.path); err == nil {
			if v, ok := disk[key]; ok && v != "" {
				return v
			}
		}
	}
	return os.Getenv(key)
}

// Static is a fixed in-memory Options, used in tests and as an
// override layer when no dotenv file is configured.
type Static map[string]string

func (s Static) Get(key string) string {
	if v, ok := s[key]; ok {
		return v
	}
	return os.Getenv(key)
}
