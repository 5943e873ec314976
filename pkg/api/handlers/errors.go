package handlers

import "github.com/gofiber/fiber/v3"

// ErrJobNotFound is returned when a job is not configured
var ErrJobNotFound = fiber.NewError(fiber.StatusNotFound, "job not found")

// ErrInvalidLimit is returned for a non-positive page limit
var ErrInvalidLimit = fiber.NewError(fiber.StatusBadRequest, "limit must be a positive integer")

// ErrInvalidBody is returned when a trigger request body cannot be decoded
var ErrInvalidBody = fiber.NewError(fiber.StatusBadRequest, "invalid request body")

// ErrBuildAlreadyQueued is returned when the allocated build is already queued
var ErrBuildAlreadyQueued = fiber.NewError(fiber.StatusConflict, "build already queued")
