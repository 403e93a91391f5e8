// Package http provides HTTP handlers and middleware for the booking API.
//
// The router exposes the following endpoints:
//   - POST /auth/register, POST /auth/login, POST /auth/logout: account and
//     token lifecycle. Login responds with {"token","expires_at","user"}.
//   - GET /auth/me, PUT /auth/me: the authenticated account and its profile.
//   - GET /sports, GET /sports/{id}: the sport catalog, open to anyone.
//     POST /sports, PUT /sports/{id}, DELETE /sports/{id}: admin writes.
//   - GET /schedules, GET /schedules/{id}: occurrence listings decorated with
//     booked counts, spots left, and the caller's joined flag.
//     POST /schedules expands a recurrence rule into a stored series.
//     PUT /schedules/{id}, DELETE /schedules/{id}, DELETE /schedules: admin
//     maintenance; the bare DELETE removes every occurrence the calling
//     admin created.
//   - POST /schedules/{id}/bookings: claims a spot, as a registered user or
//     a named guest. GET /schedules/{id}/bookings: the admin roster.
//   - GET /bookings: the caller's bookings with their occurrences.
//     DELETE /bookings/{id}: releases a spot, subject to the cancellation
//     cutoff.
//   - GET /venues?prefix=: venue suggestions. PUT /venues: admin rename.
//   - GET /users, DELETE /users/{id}: admin account management.
//
// Request/response DTOs live alongside their respective handlers so tests
// and documentation share the same ground truth.
package http
