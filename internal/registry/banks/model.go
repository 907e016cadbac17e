package banks

// Bank represents a banking institution.
type Bank struct {
	ID   int64
	Code string
	Name string
}
