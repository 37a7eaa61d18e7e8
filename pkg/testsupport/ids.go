package testsupport

import "github.com/google/uuid"

// RandomDomainID returns a fresh domain identifier suitable for tests.
func RandomDomainID() string {
	return "domains:" + uuid.NewString()
}

// RandomMemberID returns a fresh member identifier suitable for tests.
func RandomMemberID() string {
	return "profiles:" + uuid.NewString()
}

// RandomRoleID returns a fresh role identifier suitable for tests.
func RandomRoleID() string {
	return "roles:" + uuid.NewString()
}
