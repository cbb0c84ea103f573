// Copyright (c) 2026 ToeiRei
// Lingo - localized web application
// This source code is licensed under the MIT license found in the LICENSE file.
//
// Package cli implements the lingo command line using Cobra. Commands load
// the layered configuration and delegate to internal/app and the storage
// layer; they hold no business logic of their own.
package cli
