// Package classifier maps detector labels onto farm animals, humans and
// dangerous animals using a static table.
package classifier

// Classify looks label up in table. Unknown labels are Unclassified, never an error.
func Classify(label string, table *Table) Category {
	if table == nil {
		return Category{}
	}
	return table.Classify(label)
}
