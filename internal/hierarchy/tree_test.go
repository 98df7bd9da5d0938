package hierarchy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xelth-com/iditgo/internal/models"
)

func ptr[T any](v T) *T { return &v }

func loc(id, name string, parent *string, capacity *int) models.StorageLocation {
	return models.StorageLocation{ID: id, Name: name, ParentID: parent, Capacity: capacity, Width: 1, Height: 1, IsActive: true}
}

// A -> {A1 (cap 100), A2 (cap 50)}, B -> {B1 (uncapped), B2 (cap 10)}
func sampleTree() *Tree {
	return NewTree([]models.StorageLocation{
		loc("a", "A", nil, nil),
		loc("a1", "A1", ptr("a"), ptr(100)),
		loc("a2", "A2", ptr("a"), ptr(50)),
		loc("b", "B", nil, nil),
		loc("b1", "B1", ptr("b"), nil),
		loc("b2", "B2", ptr("b"), ptr(10)),
	})
}

func TestTreeStructure(t *testing.T) {
	tree := sampleTree()

	assert.Equal(t, 6, tree.Len())
	assert.Equal(t, []string{"a", "b"}, tree.Roots())
	assert.Equal(t, []string{"a1", "a2"}, tree.Children("a"))
	assert.True(t, tree.IsLeaf("a1"))
	assert.False(t, tree.IsLeaf("a"))
	assert.Equal(t, []string{"a1", "a2", "b1", "b2"}, tree.Leaves())
	assert.ElementsMatch(t, []string{"a1", "a2"}, tree.Descendants("a"))
	assert.Equal(t, []string{"A", "A2"}, tree.Path("a2"))
}

func TestAggregateCapacityAndStock(t *testing.T) {
	tree := sampleTree()
	rows := []models.CurrentInventory{
		{LocationID: "a1", ProductID: "p", Quantity: 80},
		{LocationID: "a2", ProductID: "p", Quantity: 50},
		{LocationID: "b2", ProductID: "p", Quantity: 3},
	}

	c := tree.AggregateCapacity("a")
	require.NotNil(t, c.Value())
	assert.Equal(t, 150, *c.Value())
	assert.Equal(t, 130, tree.AggregateStock("a", rows))

	// a leaf aggregates to itself
	assert.Equal(t, 100, *tree.AggregateCapacity("a1").Value())
	assert.Equal(t, 80, tree.AggregateStock("a1", rows))

	// one uncapped leaf makes the subtree unbounded
	b := tree.AggregateCapacity("b")
	assert.Nil(t, b.Value())
	assert.Equal(t, 10, b.Sum)
	assert.Equal(t, 1, b.CappedLeaves)
	assert.Equal(t, 1, b.UncappedLeaves)

	assert.Equal(t, 0, tree.AggregateStock("missing", rows))
}

func TestCapacityOfNonLeafIsIgnored(t *testing.T) {
	tree := NewTree([]models.StorageLocation{
		loc("p", "P", nil, ptr(999)),
		loc("c", "C", ptr("p"), ptr(5)),
	})
	assert.Equal(t, 5, *tree.AggregateCapacity("p").Value())
}

func TestIsAncestorOrSelf(t *testing.T) {
	tree := sampleTree()

	assert.True(t, tree.IsAncestorOrSelf("a", "a"))
	assert.True(t, tree.IsAncestorOrSelf("a", "a1"))
	assert.False(t, tree.IsAncestorOrSelf("a1", "a"))
	assert.False(t, tree.IsAncestorOrSelf("b", "a1"))
}

func TestCorruptCycleTerminates(t *testing.T) {
	// x and y point at each other; neither is reachable as a root
	tree := NewTree([]models.StorageLocation{
		loc("x", "X", ptr("y"), ptr(1)),
		loc("y", "Y", ptr("x"), nil),
	})

	assert.Empty(t, tree.Roots())
	assert.False(t, tree.IsAncestorOrSelf("z", "x"))
	assert.True(t, tree.IsAncestorOrSelf("y", "x"))
	assert.ElementsMatch(t, []string{"y"}, tree.Descendants("x"))
	assert.Empty(t, tree.LeafDescendants("x"))
	assert.Len(t, tree.Path("x"), 2)
	assert.Empty(t, tree.Forest(nil))
}

func TestRollupAndForest(t *testing.T) {
	tree := sampleTree()
	rows := []models.CurrentInventory{
		{LocationID: "a1", ProductID: "p", Quantity: 80},
		{LocationID: "a2", ProductID: "p", Quantity: 50},
	}

	r := tree.Rollup("a", rows)
	assert.False(t, r.IsLeaf)
	assert.Equal(t, 2, r.ChildCount)
	assert.Equal(t, 130, r.Stock)
	require.NotNil(t, r.UtilizationPct)
	assert.Equal(t, 87, *r.UtilizationPct)

	forest := tree.Forest(rows)
	require.Len(t, forest, 2)
	assert.Equal(t, "A", forest[0].Name)
	require.Len(t, forest[0].Nodes, 2)
	assert.Equal(t, 80, *forest[0].Nodes[0].UtilizationPct)
	assert.Nil(t, forest[1].EffectiveCapacity)
	assert.Nil(t, forest[1].UtilizationPct)
}

func TestUtilization(t *testing.T) {
	assert.Nil(t, Utilization(5, nil))
	assert.Nil(t, Utilization(5, ptr(0)))
	assert.Equal(t, 50, *Utilization(1, ptr(2)))
	assert.Equal(t, 67, *Utilization(2, ptr(3)))
	assert.Equal(t, 33, *Utilization(1, ptr(3)))
	assert.Equal(t, 1, *Utilization(1, ptr(200)))
	assert.Equal(t, 150, *Utilization(3, ptr(2)))
}
