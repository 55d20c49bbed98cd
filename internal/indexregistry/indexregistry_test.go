/*****************************************************************************************************************/

//	@author		Michael Roberts <michael@observerly.com>
//	@package	@observerly/platesolve
//	@license	Copyright © 2021-2025 observerly

/*****************************************************************************************************************/

package indexregistry

/*****************************************************************************************************************/

import (
	"testing"

	"github.com/observerly/platesolve/pkg/healpix"
)

/*****************************************************************************************************************/

func openTestRegistry(t *testing.T) *Registry {
	t.Helper()

	r, err := Open(":memory:")
	if err != nil {
		t.Fatalf("unexpected error opening registry: %v", err)
	}

	t.Cleanup(func() { _ = r.Close() })

	return r
}

/*****************************************************************************************************************/

func TestRecordAndTotalSizeBytes(t *testing.T) {
	r := openTestRegistry(t)

	files := []IndexFile{
		{Path: "/index/0/001.idx", NSide: 4, Scheme: healpix.RING, HealPixel: 1, SizeBytes: 1000},
		{Path: "/index/0/002.idx", NSide: 4, Scheme: healpix.RING, HealPixel: 2, SizeBytes: 2500},
	}

	for _, f := range files {
		if err := r.Record(f); err != nil {
			t.Fatalf("unexpected error recording %s: %v", f.Path, err)
		}
	}

	total, err := r.TotalSizeBytes()
	if err != nil {
		t.Fatalf("unexpected error summing sizes: %v", err)
	}

	if total != 3500 {
		t.Errorf("expected total size 3500, got %d", total)
	}
}

/*****************************************************************************************************************/

func TestRecordUpsertsOnPath(t *testing.T) {
	r := openTestRegistry(t)

	path := "/index/0/001.idx"

	if err := r.Record(IndexFile{Path: path, NSide: 4, Scheme: healpix.RING, HealPixel: 1, SizeBytes: 1000}); err != nil {
		t.Fatalf("unexpected error on initial record: %v", err)
	}

	if err := r.Record(IndexFile{Path: path, NSide: 4, Scheme: healpix.RING, HealPixel: 1, SizeBytes: 2000}); err != nil {
		t.Fatalf("unexpected error on update: %v", err)
	}

	files, err := r.List()
	if err != nil {
		t.Fatalf("unexpected error listing: %v", err)
	}

	if len(files) != 1 {
		t.Fatalf("expected exactly one record after upsert, got %d", len(files))
	}

	if files[0].SizeBytes != 2000 {
		t.Errorf("expected updated size 2000, got %d", files[0].SizeBytes)
	}
}

/*****************************************************************************************************************/

func TestRemoveDeletesRecord(t *testing.T) {
	r := openTestRegistry(t)

	path := "/index/0/001.idx"
	if err := r.Record(IndexFile{Path: path, SizeBytes: 500}); err != nil {
		t.Fatalf("unexpected error recording: %v", err)
	}

	if err := r.Remove(path); err != nil {
		t.Fatalf("unexpected error removing: %v", err)
	}

	total, err := r.TotalSizeBytes()
	if err != nil {
		t.Fatalf("unexpected error summing sizes: %v", err)
	}

	if total != 0 {
		t.Errorf("expected zero total after removal, got %d", total)
	}
}
