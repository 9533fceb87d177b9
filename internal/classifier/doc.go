// Package classifier scores window feature sequences against per-cluster
// trained models and reports the predicted emotion probe. Models are
// exported offline as JSON weight files and loaded at daemon startup.
package classifier
