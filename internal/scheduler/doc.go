// Package scheduler owns the recurring publish trigger.
//
// The scheduler is responsible only for:
//   - arming and disarming one recurring trigger registration
//   - reporting whether it is armed and when it fires next
//   - loading the latest schedule config and handing it to the runner on
//     every tick
//
// Ticks are not serialized against manual runs; see package publisher.
package scheduler
