// Package replay loads replay definitions: a base URI, default headers and
// the ordered list of URIs to replay against it.
//
// Definitions are JSON or YAML documents. Keys are matched case-insensitively
// so that both "baseUri" and "BaseUri" work:
//
//	{
//	  "name": "www",
//	  "description": "www - all owned movies",
//	  "baseUri": "https://www.example.com/",
//	  "headers": {"Cookie": "session=%SESSION_ID%"},
//	  "uris": ["movies", "movies?page=2"]
//	}
//
// Environment variables written as $VAR, ${VAR} or %VAR% are substituted
// before parsing; references to unset variables are left untouched.
package replay
