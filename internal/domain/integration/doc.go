// Package integration contains the Integration bounded context.
// This context manages the marketplaces products are listed on.
//
// Key concepts:
//   - MarketplaceAdapter: Port interface for creating listings on a marketplace (eBay, Shopee)
//   - MarketplaceSettings: Fee structure and reach of one (platform, account) pair
//   - ListingPayload: Value object sent to an adapter for a single listing
//
// Design Pattern: Ports & Adapters
//   - Ports (interfaces) are defined here in the domain layer
//   - Adapters (implementations) are in the infrastructure layer
package integration
