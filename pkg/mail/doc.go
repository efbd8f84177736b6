// Package mail delivers alert emails over SMTP with retry logic and
// exponential backoff, classifies delivery failures as transient or
// permanent, renders the HTML alert templates, and probes stored
// configurations for connectivity and authentication problems.
package mail
