// Package mirror exports committed prices to Redis so other
// processes can read the latest-price table without talking to this
// one. It is a one-way sink fed by a priceservice.Service's commit
// events; the coordinator never reads back from Redis, so this is
// export, not a second vote in any decision the coordinator makes.
package mirror
