// Package sso implements federated sign-in with Google. An ID token from
// Google Identity Services is verified against Google's OIDC issuer and
// bridged onto a local account: existing accounts are matched by email,
// new ones are provisioned with an unusable random password and the Google
// profile picture imported into blob storage.
package sso
