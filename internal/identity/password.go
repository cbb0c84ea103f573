// Copyright (c) 2026 ToeiRei
// Lingo - localized web application
// This source code is licensed under the MIT license found in the LICENSE file.

package identity

import "unicode"

// ValidatePassword checks pw against the policy and returns a
// *PasswordError listing every failed rule, or nil.
func ValidatePassword(opts PasswordOptions, pw string) error {
	var codes []string
	if len([]rune(pw)) < opts.RequiredLength {
		codes = append(codes, CodePasswordTooShort)
	}
	var digit, lower, upper, other bool
	unique := map[rune]struct{}{}
	for _, r := range pw {
		unique[r] = struct{}{}
		switch {
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case !unicode.IsLetter(r):
			other = true
		}
	}
	if opts.RequireDigit && !digit {
		codes = append(codes, CodePasswordRequiresDigit)
	}
	if opts.RequireLowercase && !lower {
		codes = append(codes, CodePasswordRequiresLower)
	}
	if opts.RequireUppercase && !upper {
		codes = append(codes, CodePasswordRequiresUpper)
	}
	if opts.RequireNonAlphanumeric && !other {
		codes = append(codes, CodePasswordRequiresNonAlphanum)
	}
	if len(unique) < opts.RequiredUniqueChars {
		codes = append(codes, CodePasswordRequiresUniqueChars)
	}
	if len(codes) > 0 {
		return &PasswordError{Codes: codes}
	}
	return nil
}
