// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package auth provides login sessions, password hashing and token utilities.

# Passwords

Bcrypt wraps golang.org/x/crypto/bcrypt with a configurable cost:

	hasher := auth.NewBcrypt()
	hasher.Init(cfg)          // cost from cfg.BcryptCost
	hash, err := hasher.Hash(password)
	ok := hasher.Compare(hash, password)

# Sessions

LoginManager stores sessions in the database. It needs the config and,
once connected, the database:

	lm := auth.NewLoginManager()
	lm.Init(cfg)
	lm.Bind(db)

Login issues a random 32-byte token, stores only its sha256 (HashToken)
and sets the tskr_session cookie to the HMAC-signed token:

	signed, expires, err := lm.Login(ctx, w, user)

The same signed value works as "Authorization: Bearer <token>" for API
clients. Required guards handlers and puts the user in the request context:

	mux.HandleFunc("GET /main", lm.Required(handler))
	user, ok := auth.UserFromContext(r.Context())

Expired sessions are rejected and deleted on lookup.

# Signed Tokens

	signed := auth.SignToken(token, secret)          // "<token>.<sig>"
	token, err := auth.VerifySignedToken(signed, secret)

Signatures are URL-safe base64 HMAC-SHA256 without padding.

# ID Generation

Random hex IDs:

	id, err := auth.GenerateID(16)  // 32 hex characters
*/
package auth
