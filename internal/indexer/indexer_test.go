/*****************************************************************************************************************/

//	@author		Michael Roberts <michael@observerly.com>
//	@package	@observerly/platesolve
//	@license	Copyright © 2021-2025 observerly

/*****************************************************************************************************************/

package indexer

/*****************************************************************************************************************/

import (
	"os"
	"path/filepath"
	"testing"
)

/*****************************************************************************************************************/

func TestRollbackRemovesEveryCreatedFile(t *testing.T) {
	dir := t.TempDir()

	var paths []string
	for i := 0; i < 3; i++ {
		path := filepath.Join(dir, "index-file")
		path = path + string(rune('0'+i)) + ".json"

		if err := os.WriteFile(path, []byte("{}"), 0644); err != nil {
			t.Fatalf("failed to seed file %s: %v", path, err)
		}

		paths = append(paths, path)
	}

	rollback(paths)

	for _, path := range paths {
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			t.Fatalf("expected %s to be removed by rollback, stat err = %v", path, err)
		}
	}
}

/*****************************************************************************************************************/

func TestRollbackToleratesAlreadyMissingFiles(t *testing.T) {
	dir := t.TempDir()

	missing := filepath.Join(dir, "never-written.json")

	// rollback must not panic when asked to remove a path that was never
	// created (e.g. a goroutine that failed before its write completed):
	rollback([]string{missing})
}

/*****************************************************************************************************************/
