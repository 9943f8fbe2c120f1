package pagination_test

import (
	"encoding/json"
	"net/url"
	"reflect"
	"strings"
	"testing"

	"github.com/JaimeStill/followup/pkg/pagination"
)

var cfg = pagination.Config{DefaultPageSize: 20, MaxPageSize: 100}

func TestConfigFinalize(t *testing.T) {
	t.Setenv("PAGE_DEFAULT", "50")

	c := pagination.Config{}
	if err := c.Finalize(&pagination.ConfigEnv{DefaultPageSize: "PAGE_DEFAULT", MaxPageSize: "PAGE_MAX_UNSET"}); err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if c.DefaultPageSize != 50 || c.MaxPageSize != 100 {
		t.Errorf("got %+v, want default 50 max 100", c)
	}
}

func TestConfigFinalizeErrors(t *testing.T) {
	tests := []struct {
		name    string
		cfg     pagination.Config
		env     map[string]string
		wantErr string
	}{
		{"default exceeds max", pagination.Config{DefaultPageSize: 200, MaxPageSize: 100}, nil, "cannot exceed"},
		{"negative max", pagination.Config{MaxPageSize: -1}, nil, "max_page_size must be positive"},
		{"bad env", pagination.Config{}, map[string]string{"PAGE_MAX": "lots"}, "PAGE_MAX"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			err := tt.cfg.Finalize(&pagination.ConfigEnv{MaxPageSize: "PAGE_MAX"})
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("err = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestConfigMerge(t *testing.T) {
	base := cfg
	base.Merge(&pagination.Config{MaxPageSize: 500})
	if base.DefaultPageSize != 20 || base.MaxPageSize != 500 {
		t.Errorf("merged = %+v", base)
	}
}

func TestPageRequestFromQuery(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		page, size int
		search     string
		sort       int
	}{
		{"empty", "", 1, 20, "", 0},
		{"explicit", "page=3&page_size=10&search=diab&sort=-updated_at,patient_id", 3, 10, "diab", 2},
		{"clamped", "page=-4&page_size=5000", 1, 100, "", 0},
		{"malformed", "page=two&page_size=x", 1, 20, "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values, _ := url.ParseQuery(tt.query)
			req := pagination.PageRequestFromQuery(values, cfg)

			if req.Page != tt.page || req.PageSize != tt.size {
				t.Errorf("page/size = %d/%d, want %d/%d", req.Page, req.PageSize, tt.page, tt.size)
			}
			if got := req.Search; (tt.search == "") != (got == nil) || (got != nil && *got != tt.search) {
				t.Errorf("search = %v, want %q", got, tt.search)
			}
			if len(req.Sort) != tt.sort {
				t.Errorf("sort = %+v, want %d fields", req.Sort, tt.sort)
			}
		})
	}
}

func TestSlice(t *testing.T) {
	items := []int{1, 2, 3, 4, 5, 6, 7}

	tests := []struct {
		name  string
		req   pagination.PageRequest
		want  []int
		pages int
	}{
		{"first", pagination.PageRequest{Page: 1, PageSize: 3}, []int{1, 2, 3}, 3},
		{"last partial", pagination.PageRequest{Page: 3, PageSize: 3}, []int{7}, 3},
		{"past end", pagination.PageRequest{Page: 9, PageSize: 3}, []int{}, 3},
		{"exact fit", pagination.PageRequest{Page: 1, PageSize: 7}, []int{1, 2, 3, 4, 5, 6, 7}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := pagination.Slice(items, tt.req)
			if !reflect.DeepEqual(got.Data, tt.want) {
				t.Errorf("data = %v, want %v", got.Data, tt.want)
			}
			if got.Total != 7 || got.TotalPages != tt.pages {
				t.Errorf("total/pages = %d/%d, want 7/%d", got.Total, got.TotalPages, tt.pages)
			}
		})
	}
}

func TestNewPageResultEmpty(t *testing.T) {
	r := pagination.NewPageResult[string](nil, 0, 1, 20)
	if r.Data == nil || len(r.Data) != 0 {
		t.Errorf("data = %#v, want empty non-nil", r.Data)
	}
	if r.TotalPages != 1 {
		t.Errorf("TotalPages = %d, want 1", r.TotalPages)
	}

	b, err := json.Marshal(r)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(b), `"data":[]`) {
		t.Errorf("json = %s", b)
	}
}

func TestSortFieldsUnmarshal(t *testing.T) {
	want := pagination.SortFields{{Field: "updated_at", Descending: true}, {Field: "patient_id"}}

	for _, input := range []string{
		`{"sort":"-updated_at,patient_id"}`,
		`{"sort":[{"field":"updated_at","descending":true},{"field":"patient_id"}]}`,
	} {
		var req pagination.PageRequest
		if err := json.Unmarshal([]byte(input), &req); err != nil {
			t.Fatalf("unmarshal %s: %v", input, err)
		}
		if !reflect.DeepEqual(req.Sort, want) {
			t.Errorf("%s: sort = %+v, want %+v", input, req.Sort, want)
		}
	}

	var req pagination.PageRequest
	if err := json.Unmarshal([]byte(`{"sort":42}`), &req); err == nil {
		t.Error("expected error for numeric sort")
	}
}
