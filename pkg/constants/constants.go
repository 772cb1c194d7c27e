// pkg/constants/constants.go
package constants

//============== UPLOAD CONTEXTS ==============

// UploadContext is the key prefix under which a blob is stored.
type UploadContext string

const (
	UploadContextRequest UploadContext = "requests"
	UploadContextClient  UploadContext = "clients"
)

func (uc UploadContext) String() string {
	return string(uc)
}

//============== CACHE KEYS ==============

const (
	// team:<managerID> -> JSON array of member ids
	CacheKeyTeamMembers = "team:%s"

	// login_attempts:<login> -> count
	CacheKeyLoginAttempts = "login_attempts:%s"

	// lockout:<login> -> "locked"
	CacheKeyLockout = "lockout:%s"
)

//============== AUDIT ==============

const (
	AuditActionCreate     = "CREATE"
	AuditActionUpdate     = "UPDATE"
	AuditActionDelete     = "DELETE"
	AuditActionTransition = "STATUS_CHANGE"
	AuditActionComment    = "COMMENT"
	AuditActionImport     = "IMPORT"
	AuditActionUpload     = "UPLOAD"
	AuditActionLogin      = "LOGIN"
)

const (
	AuditTargetRequest    = "REQUEST"
	AuditTargetClient     = "CLIENT"
	AuditTargetUser       = "USER"
	AuditTargetBank       = "BANK"
	AuditTargetAttachment = "ATTACHMENT"
)
