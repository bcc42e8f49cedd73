// Package backup defines the portable JSON document the inventory is
// exported to and restored from.
//
// The minimal form carries only itemTypes and jars. Categories, jar sizes,
// recipes and batch recipe overrides are optional; a restore only replaces
// the sections present in the document.
package backup

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/vbonduro/jartrack/internal/domain"
)

// Version is written to every exported document.
const Version = 1

type Document struct {
	Version      int           `json:"version"`
	ExportedAt   string        `json:"exportedAt"`
	ItemTypes    []ItemType    `json:"itemTypes"`
	Jars         []Jar         `json:"jars"`
	Categories   []Category    `json:"categories"`
	JarSizes     []JarSize     `json:"jarSizes"`
	Recipes      []Recipe      `json:"recipes"`
	BatchRecipes []BatchRecipe `json:"batchRecipes"`
}

type ItemType struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Category    string `json:"category"`
	Recipe      string `json:"recipe,omitempty"`
	RecipeImage string `json:"recipeImage,omitempty"`
	Notes       string `json:"notes,omitempty"`
}

// Jar.ID is optional on import; a jar without one gets a fresh id.
type Jar struct {
	ID          int64  `json:"id,omitempty"`
	ItemTypeID  int64  `json:"itemTypeId"`
	BatchID     string `json:"batchId,omitempty"`
	FillDateISO string `json:"fillDateISO"`
	Used        bool   `json:"used"`
	UsedDateISO string `json:"usedDateISO,omitempty"`
	JarSize     string `json:"jarSize,omitempty"`
	Location    string `json:"location,omitempty"`
	RecipeID    *int64 `json:"recipeId,omitempty"`
}

type Category struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Icon      string `json:"icon"`
	IsDefault bool   `json:"isDefault"`
}

type JarSize struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	IsDefault bool   `json:"isDefault"`
	Hidden    bool   `json:"hidden"`
	SortOrder int    `json:"sortOrder"`
}

type Recipe struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Content      string `json:"content"`
	Image        string `json:"image,omitempty"`
	CreatedDate  string `json:"createdDate"`
	LastUsedDate string `json:"lastUsedDate,omitempty"`
}

type BatchRecipe struct {
	BatchID string `json:"batchId"`
	Text    string `json:"text,omitempty"`
	Image   string `json:"image,omitempty"`
}

// Result counts what a restore wrote.
type Result struct {
	ItemTypes    int
	Jars         int
	Categories   int
	JarSizes     int
	Recipes      int
	BatchRecipes int
}

// Encode writes doc as indented JSON. Nil sections are written as empty
// arrays so the output always has every key.
func Encode(w io.Writer, doc *Document) error {
	out := *doc
	if out.ItemTypes == nil {
		out.ItemTypes = []ItemType{}
	}
	if out.Jars == nil {
		out.Jars = []Jar{}
	}
	if out.Categories == nil {
		out.Categories = []Category{}
	}
	if out.JarSizes == nil {
		out.JarSizes = []JarSize{}
	}
	if out.Recipes == nil {
		out.Recipes = []Recipe{}
	}
	if out.BatchRecipes == nil {
		out.BatchRecipes = []BatchRecipe{}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(&out); err != nil {
		return fmt.Errorf("failed to encode backup: %w", err)
	}
	return nil
}

// Decode reads one document from r. A key missing from the input leaves the
// matching slice nil, which a restore treats as "keep what is there"; an
// explicit empty array decodes to an empty, non-nil slice.
func Decode(r io.Reader) (*Document, error) {
	dec := json.NewDecoder(r)
	var doc Document
	if err := dec.Decode(&doc); err != nil {
		return nil, domain.Validationf("backup is not valid JSON: %v", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, domain.Validationf("backup has trailing data after the document")
	}
	if doc.ItemTypes == nil || doc.Jars == nil {
		return nil, domain.Validationf("backup must contain itemTypes and jars")
	}
	return &doc, nil
}

// Prepare validates doc and canonicalizes it in place: dates are normalized,
// empty categories become the default, and jars without a batch id are
// grouped into batches by item type and fill date.
func (doc *Document) Prepare() error {
	itemTypeIDs := make(map[int64]bool, len(doc.ItemTypes))
	names := make(map[string]bool, len(doc.ItemTypes))
	for i := range doc.ItemTypes {
		t := &doc.ItemTypes[i]
		t.Name = strings.TrimSpace(t.Name)
		if t.ID <= 0 {
			return domain.Validationf("itemTypes[%d]: id must be positive", i)
		}
		if itemTypeIDs[t.ID] {
			return domain.Validationf("itemTypes[%d]: duplicate id %d", i, t.ID)
		}
		if t.Name == "" {
			return domain.Validationf("itemTypes[%d]: name is required", i)
		}
		key := strings.ToLower(t.Name)
		if names[key] {
			return domain.Validationf("itemTypes[%d]: duplicate name %q", i, t.Name)
		}
		if t.Category == "" {
			t.Category = domain.DefaultCategory
		}
		itemTypeIDs[t.ID] = true
		names[key] = true
	}

	type groupKey struct {
		itemTypeID int64
		fillDate   string
	}
	groups := make(map[groupKey]string)
	jarIDs := make(map[int64]bool, len(doc.Jars))
	for i := range doc.Jars {
		j := &doc.Jars[i]
		if j.ID < 0 {
			return domain.Validationf("jars[%d]: id must be positive", i)
		}
		if j.ID > 0 {
			if jarIDs[j.ID] {
				return domain.Validationf("jars[%d]: duplicate id %d", i, j.ID)
			}
			jarIDs[j.ID] = true
		}
		if !itemTypeIDs[j.ItemTypeID] {
			return domain.Validationf("jars[%d]: unknown itemTypeId %d", i, j.ItemTypeID)
		}

		fill, err := domain.NormalizeDate(j.FillDateISO)
		if err != nil {
			return domain.Validationf("jars[%d]: fillDateISO: %v", i, err)
		}
		j.FillDateISO = fill

		switch {
		case j.Used && j.UsedDateISO == "":
			return domain.Validationf("jars[%d]: used jar has no usedDateISO", i)
		case !j.Used && j.UsedDateISO != "":
			return domain.Validationf("jars[%d]: unused jar has a usedDateISO", i)
		case j.Used:
			used, err := domain.NormalizeDate(j.UsedDateISO)
			if err != nil {
				return domain.Validationf("jars[%d]: usedDateISO: %v", i, err)
			}
			j.UsedDateISO = used
		}

		if j.BatchID == "" {
			k := groupKey{itemTypeID: j.ItemTypeID, fillDate: j.FillDateISO}
			id, ok := groups[k]
			if !ok {
				id = domain.NewBatchID()
				groups[k] = id
			}
			j.BatchID = id
		}
	}

	if err := checkUniqueNames("categories", len(doc.Categories), func(i int) (int64, string) {
		return doc.Categories[i].ID, doc.Categories[i].Name
	}); err != nil {
		return err
	}
	if err := checkUniqueNames("jarSizes", len(doc.JarSizes), func(i int) (int64, string) {
		return doc.JarSizes[i].ID, doc.JarSizes[i].Name
	}); err != nil {
		return err
	}

	recipeIDs := make(map[int64]bool, len(doc.Recipes))
	for i, r := range doc.Recipes {
		if r.ID <= 0 {
			return domain.Validationf("recipes[%d]: id must be positive", i)
		}
		if recipeIDs[r.ID] {
			return domain.Validationf("recipes[%d]: duplicate id %d", i, r.ID)
		}
		recipeIDs[r.ID] = true
		if strings.TrimSpace(r.Name) == "" {
			return domain.Validationf("recipes[%d]: name is required", i)
		}
		if r.CreatedDate == "" {
			return domain.Validationf("recipes[%d]: createdDate is required", i)
		}
	}

	batchIDs := make(map[string]bool, len(doc.BatchRecipes))
	for i, br := range doc.BatchRecipes {
		if br.BatchID == "" {
			return domain.Validationf("batchRecipes[%d]: batchId is required", i)
		}
		if batchIDs[br.BatchID] {
			return domain.Validationf("batchRecipes[%d]: duplicate batchId %q", i, br.BatchID)
		}
		batchIDs[br.BatchID] = true
	}
	return nil
}

func checkUniqueNames(section string, n int, at func(int) (int64, string)) error {
	ids := make(map[int64]bool, n)
	names := make(map[string]bool, n)
	for i := 0; i < n; i++ {
		id, name := at(i)
		if id <= 0 {
			return domain.Validationf("%s[%d]: id must be positive", section, i)
		}
		if ids[id] {
			return domain.Validationf("%s[%d]: duplicate id %d", section, i, id)
		}
		key := strings.ToLower(strings.TrimSpace(name))
		if key == "" {
			return domain.Validationf("%s[%d]: name is required", section, i)
		}
		if names[key] {
			return domain.Validationf("%s[%d]: duplicate name %q", section, i, name)
		}
		ids[id] = true
		names[key] = true
	}
	return nil
}
