package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/nao1215/bygglarm/internal/addresses"
	"github.com/nao1215/bygglarm/internal/model"
)

func mustUpdate(t *testing.T, db *DB, fn func(addresses.Tx) error) {
	t.Helper()
	if err := db.Update(context.Background(), fn); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
}

func nextQuery(t *testing.T, db *DB) *model.Query {
	t.Helper()
	var q *model.Query
	if err := db.View(context.Background(), func(tx addresses.Tx) error {
		var err error
		q, err = tx.NextQuery()
		return err
	}); err != nil {
		t.Fatalf("View failed: %v", err)
	}
	return q
}

func TestStore_Queries(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)

	mustUpdate(t, db, func(tx addresses.Tx) error {
		for _, q := range []model.Query{
			model.NewQuery("A", false),
			model.NewQuery("B", false),
			model.NewQuery("Testgatan ", true),
		} {
			ok, err := tx.AddQuery(q)
			if err != nil {
				return err
			}
			if !ok {
				t.Errorf("query %q not inserted", q.Prefix)
			}
		}
		ok, err := tx.AddQuery(model.NewQuery("A", false))
		if err != nil {
			return err
		}
		if ok {
			t.Error("duplicate query inserted")
		}
		ok, err = tx.AddQuery(model.NewQuery("A", true))
		if err != nil {
			return err
		}
		if !ok {
			t.Error("full-entry query with the same prefix must be distinct")
		}
		return nil
	})

	q := nextQuery(t, db)
	if q == nil || q.Prefix != "Testgatan " || !q.FullEntry {
		t.Fatalf("expected full-entry query first, got %+v", q)
	}
	if q.Status != model.QueryTBD || q.NumResults != -1 || q.CreatedAt.IsZero() {
		t.Errorf("unexpected new query state %+v", q)
	}

	t.Run("expand only then expanded", func(t *testing.T) {
		mustUpdate(t, db, func(tx addresses.Tx) error {
			if err := tx.UpdateQueryStatus(q.ID, model.QueryTBD, model.QueryExpandOnly, -1); err != nil {
				return err
			}
			return tx.UpdateQueryStatus(q.ID, model.QueryExpandOnly, model.QueryExpanded, -1)
		})
	})

	t.Run("regression is rejected", func(t *testing.T) {
		err := db.Update(context.Background(), func(tx addresses.Tx) error {
			return tx.UpdateQueryStatus(q.ID, model.QueryExpanded, model.QueryTBD, -1)
		})
		if !errors.Is(err, addresses.ErrStatusRegression) {
			t.Errorf("expected ErrStatusRegression, got %v", err)
		}
	})

	t.Run("stale update is rejected", func(t *testing.T) {
		err := db.Update(context.Background(), func(tx addresses.Tx) error {
			return tx.UpdateQueryStatus(q.ID, model.QueryTBD, model.QueryLeaf, 3)
		})
		if !errors.Is(err, addresses.ErrStaleQuery) {
			t.Errorf("expected ErrStaleQuery, got %v", err)
		}
	})

	t.Run("trigger rejects direct regressions", func(t *testing.T) {
		_, err := db.db.ExecContext(context.Background(),
			"UPDATE queries SET status = ? WHERE id = ?", int(model.QueryTBD), q.ID)
		if err == nil {
			t.Error("expected the schema to reject a status regression")
		}
	})

	t.Run("oldest pending query next", func(t *testing.T) {
		next := nextQuery(t, db)
		if next == nil || next.Prefix != "A" || !next.FullEntry {
			t.Errorf("expected full-entry A, got %+v", next)
		}
	})

	t.Run("count", func(t *testing.T) {
		var n int
		if err := db.View(context.Background(), func(tx addresses.Tx) error {
			var err error
			n, err = tx.CountQueries()
			return err
		}); err != nil {
			t.Fatal(err)
		}
		if n != 4 {
			t.Errorf("expected 4 queries, got %d", n)
		}
	})
}

func TestStore_Rollback(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	errBoom := errors.New("boom")

	err := db.Update(context.Background(), func(tx addresses.Tx) error {
		if _, err := tx.AddQuery(model.NewQuery("A", false)); err != nil {
			return err
		}
		if _, err := tx.AddCharacter("A"); err != nil {
			return err
		}
		return errBoom
	})
	if !errors.Is(err, errBoom) {
		t.Fatalf("expected errBoom, got %v", err)
	}

	if q := nextQuery(t, db); q != nil {
		t.Errorf("rolled back query visible: %+v", q)
	}
	if err := db.View(context.Background(), func(tx addresses.Tx) error {
		chars, err := tx.Characters()
		if len(chars) != 0 {
			t.Errorf("rolled back character visible: %v", chars)
		}
		return err
	}); err != nil {
		t.Fatal(err)
	}
}

func TestStore_Characters(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)

	mustUpdate(t, db, func(tx addresses.Tx) error {
		for _, c := range []string{"B", "A", " ", "A"} {
			if _, err := tx.AddCharacter(c); err != nil {
				return err
			}
		}
		chars, err := tx.Characters()
		if err != nil {
			return err
		}
		if diff := cmp.Diff([]string{"B", "A", " "}, chars); diff != "" {
			t.Errorf("characters mismatch (-want +got):\n%s", diff)
		}
		return nil
	})
}

func TestStore_Entries(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)

	mustUpdate(t, db, func(tx addresses.Tx) error {
		missing, err := tx.EntryByName("Testgatan")
		if err != nil {
			return err
		}
		if missing != nil {
			t.Errorf("expected nil for unknown entry, got %+v", missing)
		}

		b := model.PointBounds(model.Coord{X: 100, Y: 200})
		id, err := tx.InsertEntry(model.Entry{Name: "Testgatan", Type: model.EntryStreet, Bounds: &b})
		if err != nil {
			return err
		}
		if _, err := tx.InsertEntryNumber(model.EntryNumber{EntryID: id, Name: "1", Coord: &model.Coord{X: 100, Y: 200}}); err != nil {
			return err
		}
		if _, err := tx.InsertEntryNumber(model.EntryNumber{EntryID: id, Name: "3"}); err != nil {
			return err
		}
		if _, err := tx.InsertEntryNumber(model.EntryNumber{EntryID: id, Name: "1"}); err == nil {
			t.Error("duplicate entry number inserted")
		}
		if err := tx.UpdateEntryBounds(id, b.Extend(model.Coord{X: 101, Y: 199})); err != nil {
			return err
		}

		noBounds, err := tx.InsertEntry(model.Entry{Name: "Ödevägen", Type: model.EntryStreet})
		if err != nil {
			return err
		}
		if _, err := tx.InsertEntry(model.Entry{Name: "Ödevägen"}); err == nil {
			t.Error("duplicate entry inserted")
		}

		got, err := tx.EntryByName("Testgatan")
		if err != nil {
			return err
		}
		want := &model.Entry{ID: id, Name: "Testgatan", Type: model.EntryStreet,
			Bounds: &model.Bounds{XMin: 100, XMax: 101, YMin: 199, YMax: 200}}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("entry mismatch (-want +got):\n%s", diff)
		}

		oden, err := tx.EntryByName("Ödevägen")
		if err != nil {
			return err
		}
		if oden.ID != noBounds || oden.Bounds != nil {
			t.Errorf("expected entry without bounds, got %+v", oden)
		}

		one, err := tx.EntryNumber(id, "1")
		if err != nil {
			return err
		}
		if diff := cmp.Diff(&model.Coord{X: 100, Y: 200}, one.Coord); diff != "" {
			t.Errorf("coordinate mismatch (-want +got):\n%s", diff)
		}
		three, err := tx.EntryNumber(id, "3")
		if err != nil {
			return err
		}
		if three.Coord != nil {
			t.Errorf("expected nil coordinate, got %+v", three.Coord)
		}
		none, err := tx.EntryNumber(id, "5")
		if err != nil {
			return err
		}
		if none != nil {
			t.Errorf("expected nil for unknown number, got %+v", none)
		}
		return nil
	})
}

func TestStore_RawEntries(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	raw := model.RawEntry{
		Name:    "Testgatan 1",
		Key:     "17",
		Result:  "Testgatan 1",
		Section: "Adresser",
		Symbol:  model.SymbolStreet,
		X:       "100",
		Y:       "200",
		Query:   "Testg",
		First:   true,
	}

	mustUpdate(t, db, func(tx addresses.Tx) error {
		if _, err := tx.InsertRawEntry(raw); err != nil {
			return err
		}
		later := raw
		later.First = false
		later.X = "101"
		if _, err := tx.InsertRawEntry(later); err != nil {
			return err
		}

		got, err := tx.FirstRawEntry("Testgatan 1")
		if err != nil {
			return err
		}
		if diff := cmp.Diff(&raw, got, cmpopts.IgnoreFields(model.RawEntry{}, "ID")); diff != "" {
			t.Errorf("raw entry mismatch (-want +got):\n%s", diff)
		}
		return nil
	})
}

func TestStore_ConcurrentHandles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	open := func() *DB {
		db, err := Open(dir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		t.Cleanup(func() {
			_ = db.Close()
		})
		return db
	}
	first := open()
	second := open()

	t.Run("writer waits for the other handle's transaction", func(t *testing.T) {
		locked := make(chan struct{})
		done := make(chan error, 1)
		go func() {
			done <- second.Update(context.Background(), func(tx addresses.Tx) error {
				if _, err := tx.AddQuery(model.NewQuery("A", false)); err != nil {
					return err
				}
				close(locked)
				time.Sleep(200 * time.Millisecond)
				return nil
			})
		}()
		<-locked

		mustUpdate(t, first, func(tx addresses.Tx) error {
			_, err := tx.AddQuery(model.NewQuery("B", false))
			return err
		})
		if err := <-done; err != nil {
			t.Fatalf("second handle Update failed: %v", err)
		}
	})

	t.Run("read then write does not fail on lock upgrade", func(t *testing.T) {
		locked := make(chan struct{})
		done := make(chan error, 1)
		go func() {
			done <- second.Update(context.Background(), func(tx addresses.Tx) error {
				if _, err := tx.NextQuery(); err != nil {
					return err
				}
				close(locked)
				time.Sleep(200 * time.Millisecond)
				_, err := tx.AddQuery(model.NewQuery("C", false))
				return err
			})
		}()
		<-locked

		mustUpdate(t, first, func(tx addresses.Tx) error {
			if _, err := tx.NextQuery(); err != nil {
				return err
			}
			_, err := tx.AddQuery(model.NewQuery("D", false))
			return err
		})
		if err := <-done; err != nil {
			t.Fatalf("second handle Update failed: %v", err)
		}
	})

	var n int
	if err := first.View(context.Background(), func(tx addresses.Tx) error {
		var err error
		n, err = tx.CountQueries()
		return err
	}); err != nil {
		t.Fatalf("View failed: %v", err)
	}
	if n != 4 {
		t.Errorf("CountQueries() = %d, want 4", n)
	}
}
