// Package identity derives where a study's converted files go: the locator
// built from the study description, the normalized subject, and the session
// announced by ses- tokens in the protocol names.
package identity
