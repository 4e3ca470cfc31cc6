// Package password implements the password hashers used by the gate.
//
// # Output format
//
// Argon2id hashes are encoded in PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// bcrypt hashes use the standard $2a$/$2b$ modular crypt form. [Auto]
// verifies either and hashes new passwords with Argon2id; its NeedsRehash
// flags bcrypt and under-parameterized Argon2id hashes so the caller can
// re-hash after a successful login.
//
// This package owns hashing and verification only. It never logs
// plaintext or stores hashes.
package password
