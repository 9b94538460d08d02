// Package whisperwall is a small authenticated web application: users
// register locally or sign in with Google, and authenticated users can post
// a short text secret that is shown anonymously alongside everyone else's.
//
// The package exposes the application pieces individually so they can be
// composed and tested in isolation:
//
//   - UserStore is the persistence contract, with file, GORM and Google
//     Cloud Datastore implementations under stores/.
//   - LocalAuth verifies and registers username/password credentials.
//   - SessionManager tracks the logged in user per browsing context.
//   - oauth2.GoogleOAuth2 runs the delegated login flow.
//   - App wires them all together and owns the route layer.
//
// Everything is constructed once at startup (see cmd/whisperwall) and passed
// down explicitly; there is no global state.
package whisperwall
