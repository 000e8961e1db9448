// Package models defines the core domain models.
//
// # Models
//
//   - User: an account with an approval status, roles and notification
//     preferences
//   - Requirement: a purchase request moving between pending and purchased
//   - Comment: a note on a requirement, deleted together with it
//   - TitheTask / TitheEntry: a donation-counting session and its entries
//   - ReceiptRecognition: AI-extracted receipt fields
//
// # Design Principles
//
//  1. Relationships are ID strings, never pointers
//  2. Denormalized display names (requesterName, purchaserName, ...) are
//     stored next to IDs so lists render without extra lookups
//  3. JSON names match what the SPA expects (camelCase)
package models
