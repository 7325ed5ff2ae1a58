// Package reqfile loads and saves request files.
//
// A request file is a YAML document:
//
//	method: POST
//	url: https://{{host}}/api/users
//	headers:
//	  Content-Type: application/x-www-form-urlencoded
//	  X-Trace: "{{uuid()}}"
//	data:
//	  name: alice
//	  avatar: "@avatar.png"
//	timeout: 10s
//	auth:
//	  username: alice
//	  password: "{{$API_PASSWORD}}"
//	options:
//	  follow_redirects: false
//	vars:
//	  host: localhost:8080
//	extract:
//	  - id=body.data.id
//	expect:
//	  - status == 201
//
// Header and data order survive a load and save round trip.
package reqfile
