package registry

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/nao1215/bygglarm/internal/browser"
	"github.com/nao1215/bygglarm/internal/model"
)

// fakeRegistry serves a fixed list of result pages. Like the real site, it
// repeats the last page when asked for the page after it.
type fakeRegistry struct {
	pages [][]model.Case

	// endless makes every Page$Next return a page with new ids.
	endless bool

	index     int
	opened    []string
	submitted map[string]string
	postbacks []string
	failAt    int
}

func (f *fakeRegistry) Open(_ context.Context, rawURL string) (*browser.Page, error) {
	f.opened = append(f.opened, rawURL)
	return pageOf(nil), nil
}

func (f *fakeRegistry) SubmitForm(_ context.Context, formSelector string, fields map[string]string) (*browser.Page, error) {
	if formSelector != FormSelector {
		return nil, fmt.Errorf("unexpected form %q", formSelector)
	}
	f.submitted = fields
	f.index = 0
	if len(f.pages) == 0 {
		return pageOf(nil), nil
	}
	return pageOf(f.pages[0]), nil
}

func (f *fakeRegistry) Postback(_ context.Context, _ string, target, argument string) (*browser.Page, error) {
	f.postbacks = append(f.postbacks, target+"|"+argument)
	if f.failAt > 0 && len(f.postbacks) == f.failAt {
		return nil, browser.ErrUnexpectedStatus
	}
	if f.endless {
		f.index++
		return pageOf([]model.Case{testCase(fmt.Sprintf("9999-%05d", f.index))}), nil
	}
	if f.index < len(f.pages)-1 {
		f.index++
	}
	return pageOf(f.pages[f.index]), nil
}

func pageOf(cases []model.Case) *browser.Page {
	var b strings.Builder
	b.WriteString("<html><head><title>Ärenden</title></head><body><table>")
	for _, c := range cases {
		fmt.Fprintf(&b, `<tr><td class="DataGridItemCell"><a href="#">%s</a></td><td>%s</td><td>%s</td><td>%s</td><td>%s</td></tr>`,
			c.ID, c.Property, c.CaseType, c.Description, c.Date)
	}
	b.WriteString("</table></body></html>")
	u, _ := url.Parse(DefaultURL) //nolint:errcheck // constant URL
	return &browser.Page{URL: u, Body: []byte(b.String()), Title: "Ärenden"}
}

func testCase(id string) model.Case {
	return model.Case{ID: id, Property: "Vasastaden 1:1", CaseType: "Bygglov", Description: "Ärende " + id, Date: "2019-01-01"}
}

func testCases(ids ...string) []model.Case {
	cases := make([]model.Case, len(ids))
	for i, id := range ids {
		cases[i] = testCase(id)
	}
	return cases
}

// countingLimiter counts waits and can fail them.
type countingLimiter struct {
	waits int
	err   error
}

func (l *countingLimiter) Wait(context.Context) error {
	l.waits++
	return l.err
}

func threePages() [][]model.Case {
	return [][]model.Case{
		testCases("2020-00009", "2020-00008", "2020-00007"),
		testCases("2019-00006", "2019-00005", "2019-00004"),
		testCases("2018-00003", "2018-00002"),
	}
}

func TestWatcher_GetCases(t *testing.T) {
	t.Parallel()

	all := testCases("2020-00009", "2020-00008", "2020-00007", "2019-00006", "2019-00005", "2019-00004", "2018-00003", "2018-00002")

	tests := []struct {
		name      string
		watermark string
		want      []model.Case
		postbacks int
	}{
		{name: "watermark on first page", watermark: "2020-00008", want: all[:1], postbacks: 0},
		{name: "watermark first case", watermark: "2020-00009", want: []model.Case{}, postbacks: 0},
		{name: "watermark on second page", watermark: "2019-00005", want: all[:4], postbacks: 1},
		{name: "watermark on last page", watermark: "2018-00002", want: all[:7], postbacks: 2},
		{name: "empty watermark returns full history", watermark: "", want: all, postbacks: 3},
		{name: "unknown watermark returns full history", watermark: "1999-00001", want: all, postbacks: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			site := &fakeRegistry{pages: threePages()}
			limiter := &countingLimiter{}
			w := NewWatcher(site, WithLimiter(limiter))

			got, err := w.GetCases(context.Background(), "Brunnsgatan 1", tt.watermark)
			if err != nil {
				t.Fatalf("GetCases failed: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("cases mismatch (-want +got):\n%s", diff)
			}
			if len(site.postbacks) != tt.postbacks {
				t.Errorf("expected %d postbacks, got %d", tt.postbacks, len(site.postbacks))
			}
			if limiter.waits != tt.postbacks {
				t.Errorf("expected a wait before every postback, got %d waits for %d postbacks", limiter.waits, tt.postbacks)
			}
		})
	}
}

func TestWatcher_SearchForm(t *testing.T) {
	t.Parallel()

	t.Run("address search", func(t *testing.T) {
		t.Parallel()

		site := &fakeRegistry{pages: threePages()}
		w := NewWatcher(site, WithLimiter(&countingLimiter{}), WithURL("http://registry.test/Arenden/"))
		if _, err := w.GetCases(context.Background(), "Brunnsgatan 1", "2020-00009"); err != nil {
			t.Fatalf("GetCases failed: %v", err)
		}

		if diff := cmp.Diff([]string{"http://registry.test/Arenden/"}, site.opened); diff != "" {
			t.Errorf("opened mismatch (-want +got):\n%s", diff)
		}
		want := map[string]string{
			AddressField: "Brunnsgatan 1",
			SearchButton: "Sök",
		}
		if diff := cmp.Diff(want, site.submitted); diff != "" {
			t.Errorf("submitted fields mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("property search", func(t *testing.T) {
		t.Parallel()

		site := &fakeRegistry{pages: threePages()}
		w := NewWatcher(site, WithLimiter(&countingLimiter{}))
		if _, err := w.GetCasesFor(context.Background(), Search{Property: "Vasastaden 1:1"}, "2020-00009"); err != nil {
			t.Fatalf("GetCasesFor failed: %v", err)
		}
		if site.submitted[PropertyField] != "Vasastaden 1:1" {
			t.Errorf("expected property field to be set, got %v", site.submitted)
		}
		if _, ok := site.submitted[AddressField]; ok {
			t.Error("address field must not be set for a property search")
		}
	})

	t.Run("postbacks target the grid", func(t *testing.T) {
		t.Parallel()

		site := &fakeRegistry{pages: threePages()}
		w := NewWatcher(site, WithLimiter(&countingLimiter{}))
		if _, err := w.GetCases(context.Background(), "Brunnsgatan 1", "2019-00006"); err != nil {
			t.Fatalf("GetCases failed: %v", err)
		}
		want := []string{"ctl00$FullContentRegion$ContentRegion$SecondaryContentRegion$CaseList$CaseGrid|Page$Next"}
		if diff := cmp.Diff(want, site.postbacks); diff != "" {
			t.Errorf("postbacks mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("empty search", func(t *testing.T) {
		t.Parallel()

		w := NewWatcher(&fakeRegistry{})
		if _, err := w.GetCasesFor(context.Background(), Search{}, ""); !errors.Is(err, ErrEmptySearch) {
			t.Errorf("expected ErrEmptySearch, got %v", err)
		}
	})
}

func TestWatcher_EdgeCases(t *testing.T) {
	t.Parallel()

	t.Run("no results on first page", func(t *testing.T) {
		t.Parallel()

		site := &fakeRegistry{}
		limiter := &countingLimiter{}
		w := NewWatcher(site, WithLimiter(limiter))

		got, err := w.GetCases(context.Background(), "Okänd gata 1", "")
		if err != nil {
			t.Fatalf("GetCases failed: %v", err)
		}
		if got == nil || len(got) != 0 {
			t.Errorf("expected an empty slice, got %v", got)
		}
		if len(site.postbacks) != 0 || limiter.waits != 0 {
			t.Error("expected no further requests")
		}
	})

	t.Run("page limit returns partial results", func(t *testing.T) {
		t.Parallel()

		site := &fakeRegistry{pages: [][]model.Case{testCases("9999-00000")}, endless: true}
		w := NewWatcher(site, WithLimiter(&countingLimiter{}), WithMaxPages(3))

		got, err := w.GetCases(context.Background(), "Brunnsgatan 1", "")
		if !errors.Is(err, ErrPageLimit) {
			t.Fatalf("expected ErrPageLimit, got %v", err)
		}
		if len(got) != 3 {
			t.Errorf("expected 3 partial cases, got %d", len(got))
		}
		if len(site.postbacks) != 2 {
			t.Errorf("expected 2 postbacks, got %d", len(site.postbacks))
		}
	})

	t.Run("limiter error stops the traversal", func(t *testing.T) {
		t.Parallel()

		site := &fakeRegistry{pages: threePages()}
		w := NewWatcher(site, WithLimiter(&countingLimiter{err: context.Canceled}))

		got, err := w.GetCases(context.Background(), "Brunnsgatan 1", "")
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
		if len(got) != 3 {
			t.Errorf("expected first page to be returned, got %d cases", len(got))
		}
		if len(site.postbacks) != 0 {
			t.Error("expected no postback after a failed wait")
		}
	})

	t.Run("postback failure is returned", func(t *testing.T) {
		t.Parallel()

		site := &fakeRegistry{pages: threePages(), failAt: 2}
		w := NewWatcher(site, WithLimiter(&countingLimiter{}))

		got, err := w.GetCases(context.Background(), "Brunnsgatan 1", "")
		if !errors.Is(err, browser.ErrUnexpectedStatus) {
			t.Fatalf("expected ErrUnexpectedStatus, got %v", err)
		}
		if len(got) != 6 {
			t.Errorf("expected 6 partial cases, got %d", len(got))
		}
	})
}

func TestSearch_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		search  Search
		wantErr error
	}{
		{name: "street", search: Search{Address: "Brunnsgatan 1"}},
		{name: "property", search: Search{Property: "Kv Tegelbruket 1:1"}},
		{name: "swedish letters and punctuation", search: Search{Address: "SANKT GÖRANSGATAN 12-14 & Åsögatan 3+5."}},
		{name: "both", search: Search{Address: "Brunnsgatan 1", Property: "Tegelbruket 1"}},
		{name: "empty", search: Search{}, wantErr: ErrEmptySearch},
		{name: "too short", search: Search{Address: "Ab"}, wantErr: ErrInvalidTerm},
		{name: "too long", search: Search{Address: strings.Repeat("a", 256)}, wantErr: ErrInvalidTerm},
		{name: "longest allowed", search: Search{Address: strings.Repeat("ö", 255)}},
		{name: "markup", search: Search{Address: "<script>"}, wantErr: ErrInvalidTerm},
		{name: "quote", search: Search{Property: "Kv O'Hare 1"}, wantErr: ErrInvalidTerm},
		{name: "control character", search: Search{Address: "Brunnsgatan\n1"}, wantErr: ErrInvalidTerm},
		{name: "invalid property with valid street", search: Search{Address: "Brunnsgatan 1", Property: "%%%"}, wantErr: ErrInvalidTerm},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tt.search.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
