package pipeline

import (
	"fmt"
	"os"
)

// MinArtifactBytes is the size below which an artifact is suspicious but
// still accepted; the runner logs a warning instead of failing.
const MinArtifactBytes = 100 << 10 // 100 KB

// verifyArtifact checks that path names an existing, non-empty file and
// returns its size. Missing or zero-size files fail with ErrVerification;
// the small-file warning is the caller's responsibility.
func verifyArtifact(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("%w: %s does not exist: %v", ErrVerification, path, err)
	}
	if info.IsDir() {
		return 0, fmt.Errorf("%w: %s is a directory", ErrVerification, path)
	}
	if info.Size() == 0 {
		return 0, fmt.Errorf("%w: %s is empty", ErrVerification, path)
	}
	return info.Size(), nil
}
