package links

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seckatie/linksaver/internal/core"
)

func fixedGen(ids ...string) Generator {
	i := 0
	return func() string {
		id := ids[i%len(ids)]
		i++
		return id
	}
}

func TestNew(t *testing.T) {
	now := time.UnixMilli(1700000000000)
	clock := func() time.Time { return now }

	tests := []struct {
		name      string
		in        Input
		wantTitle string
		wantURL   string
	}{
		{
			name:      "title kept",
			in:        Input{URL: "http://a.com", Title: "A"},
			wantTitle: "A",
			wantURL:   "http://a.com",
		},
		{
			name:      "blank title defaults to url",
			in:        Input{URL: "http://a.com", Title: "   "},
			wantTitle: "http://a.com",
			wantURL:   "http://a.com",
		},
		{
			name:      "url trimmed",
			in:        Input{URL: "  http://b.com\n"},
			wantTitle: "http://b.com",
			wantURL:   "http://b.com",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			it := New(fixedGen("id-1"), clock, tt.in)
			assert.Equal(t, "id-1", it.ID)
			assert.Equal(t, tt.wantURL, it.URL)
			assert.Equal(t, tt.wantTitle, it.Title)
			assert.Equal(t, "", it.Notes)
			assert.Equal(t, int64(1700000000000), it.CreatedAt)
			assert.NotNil(t, it.Tags)
		})
	}
}

func TestNewCopiesTags(t *testing.T) {
	tags := []string{"go", "web"}
	it := New(fixedGen("x"), time.Now, Input{URL: "http://a.com", Tags: tags})
	tags[0] = "changed"
	assert.Equal(t, []string{"go", "web"}, it.Tags)
}

func TestParseTags(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", []string{}},
		{"go", []string{"go"}},
		{" go , web ,", []string{"go", "web"}},
		{"a,,b, ,c", []string{"a", "b", "c"}},
		{"dup,dup", []string{"dup", "dup"}},
		{"z,a", []string{"z", "a"}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseTags(tt.in))
		})
	}
}

func TestNormalize(t *testing.T) {
	it := Item{ID: "1", URL: "http://a.com"}.Normalize()
	assert.Equal(t, "http://a.com", it.Title)
	assert.Equal(t, []string{}, it.Tags)
}

func TestCategoriesClone(t *testing.T) {
	c := Categories{"Work": {{ID: "1", URL: "u", Tags: []string{"t"}}}}
	cp := c.Clone()
	cp["Work"][0].Tags[0] = "x"
	cp["Work"] = append(cp["Work"], Item{ID: "2"})

	assert.Equal(t, "t", c["Work"][0].Tags[0])
	assert.Len(t, c["Work"], 1)
}

func TestCategoriesNames(t *testing.T) {
	c := Categories{"Work": nil, core.UnsortedCategory: nil, "Art": nil}
	assert.Equal(t, []string{core.UnsortedCategory, "Art", "Work"}, c.Names())

	assert.Equal(t, []string{"B"}, Categories{"B": nil}.Names())
}

func TestCategoriesFind(t *testing.T) {
	c := Categories{
		core.UnsortedCategory: {{ID: "a"}},
		"Work":                {{ID: "b"}, {ID: "c"}},
	}

	cat, idx, ok := c.Find(Ref{ID: "c"})
	require.True(t, ok)
	assert.Equal(t, "Work", cat)
	assert.Equal(t, 1, idx)

	_, _, ok = c.Find(Ref{ID: "c", Category: core.UnsortedCategory})
	assert.False(t, ok)

	_, _, ok = c.Find(Ref{ID: "missing"})
	assert.False(t, ok)
}

func TestGenerators(t *testing.T) {
	gens := map[string]Generator{
		"uuidv4":    UUIDv4(),
		"timebased": TimeBased(time.Now),
		"strong":    Strong(),
	}
	for name, gen := range gens {
		t.Run(name, func(t *testing.T) {
			seen := make(map[string]bool)
			for i := 0; i < 1000; i++ {
				id := gen()
				require.NotEmpty(t, id)
				require.False(t, seen[id], "duplicate id %s", id)
				seen[id] = true
			}
		})
	}

	id, err := uuid.Parse(Strong()())
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), id.Version())
}

func TestItemCreated(t *testing.T) {
	it := Item{CreatedAt: 1700000000000}
	assert.Equal(t, int64(1700000000000), it.Created().UnixMilli())
}
