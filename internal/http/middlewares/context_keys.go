package middlewares

const (
	CtxRequestID = "request_id"

	ctxUserIDKey = "auth.userID"
	ctxRoleKey   = "auth.role"
	ctxClaimsKey = "auth.claims"
)
