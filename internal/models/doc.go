// Package models defines the domain types shared by the monitor, the services and the repositories.
//
// Value types describe what the remote service reports:
//   - [Track] : a track identified by its service id, with display fields and a URI
//   - [Credential] : a bearer token and when it was issued
//   - [Observation] : the classified result of a "now playing" poll
//   - [DeviceQueryResult] : the classified result of a device list query
//
// [Link] is the only persistent entity. It implements [Model] and is stored through a [Repository] that
// also satisfies [LinkStore], the narrow lookup the monitor uses while polling.
package models
