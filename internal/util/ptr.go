package util

// StringPtr returns a pointer to s, or nil when s is empty.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// FloatPtr returns a pointer to f.
func FloatPtr(f float64) *float64 {
	return &f
}

// Deref returns the pointed-to string or "" for nil.
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// DerefFloat returns the pointed-to float or 0 for nil.
func DerefFloat(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}
