package firestore

import "cloud.google.com/go/firestore"

var (
	CategoriesFromValue      = categoriesFromValue
	CategoryDetailsFromValue = categoryDetailsFromValue
)

// ClientForTest exposes the underlying client to write raw documents
func (f *Firestore) ClientForTest() *firestore.Client {
	return f.client
}
