// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec

// Subject is the loaded account behind a verified access token.
//
// The access guard attaches it to the request context; handlers that need the
// full record type-assert it back to their own account type.
type Subject interface {
	SubjectID() string
	SubjectRole() Role
	IsBlocked() bool
}
