package domain

// DefaultCategory is assigned to item types saved without a category.
const DefaultCategory = "other"

type ItemType struct {
	ID          int64
	Name        string
	Category    string
	Recipe      string
	RecipeImage string
	Notes       string
}

// Jar is one physical container. UsedDate is empty while Used is false and
// is stamped exactly once when the jar is marked used.
type Jar struct {
	ID         int64
	ItemTypeID int64
	BatchID    string
	FillDate   string
	Used       bool
	UsedDate   string
	JarSize    string
	Location   string
	RecipeID   *int64
}

// Batch is a derived view over all jars sharing a batch id. Display fields
// come from the item type and the lowest-id jar of the group.
type Batch struct {
	BatchID       string
	ItemTypeID    int64
	Name          string
	Category      string
	Notes         string
	FillDate      string
	JarSize       string
	Location      string
	RecipeID      *int64
	TotalJars     int
	UsedJars      int
	AvailableJars int
	JarIDs        []int64
}

type Recipe struct {
	ID           int64
	Name         string
	Content      string
	Image        string
	CreatedDate  string
	LastUsedDate string
}

// BatchRecipe is the per-batch recipe override.
type BatchRecipe struct {
	BatchID string
	Text    string
	Image   string
}

type Category struct {
	ID        int64
	Name      string
	Icon      string
	IsDefault bool
}

type JarSize struct {
	ID        int64
	Name      string
	IsDefault bool
	Hidden    bool
	SortOrder int
}
