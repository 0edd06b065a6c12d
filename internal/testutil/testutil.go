// Package testutil provides shared test helpers for content directories and databases.
package testutil

import (
	"path/filepath"
	"testing"

	"github.com/starford/folio/internal/index"
	"github.com/starford/folio/internal/storage"
)

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	db, err := index.Open(filepath.Join(t.TempDir(), "folio.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestContent creates a temporary content directory with a storage.Provider
// and writes pages (file name -> source) under pages/.
func TestContent(t *testing.T, pages map[string]string) (string, storage.Provider) {
	t.Helper()
	root := t.TempDir()
	store, err := storage.NewFS(root)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	for name, src := range pages {
		if err := store.Write("pages/"+name, []byte(src)); err != nil {
			t.Fatalf("write page %s: %v", name, err)
		}
	}
	return root, store
}

// SamplePages is a small blog used across package tests.
var SamplePages = map[string]string{
	"badminton.md": "---\ntitle: 배드민턴 라켓 브랜드 정리\ndate: 2025-11-20\ncategory: 배드민턴\n" +
		"tags: [\"요넥스\", \"빅터\", \"라켓\"]\nexcerpt: 브랜드별 라켓 비교\n---\n" +
		"라켓 이야기.\n\n## [요넥스](https://www.yonex.com)\n아스트록스 시리즈.\n\n## 빅터\n스러스터.\n\n## 마무리\n끝.\n",
	"ufc.md": "---\ntitle: UFC 322 리뷰\ndate: 2025-11-16\ncategory: 격투기\ntags: [UFC, 챔피언 소식]\n---\n" +
		"## 챔피언 소식\n새 챔피언.\n\n## 관련 영상\n영상 링크.\n",
	"plain.md": "Header-less note about 라켓 strings.\n",
}
