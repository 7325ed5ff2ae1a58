// Package env loads variables and interpolates them into request fields.
//
// It provides:
//   - dotenv loading through joho/godotenv
//   - {{variable}} interpolation from user variables and captured values
//   - {{$NAME}} lookups in the process environment
//   - {{func(args)}} calls into the builtin registry (uuid, timestamp, ...)
package env
