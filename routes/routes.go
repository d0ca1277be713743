package routes

// Routes package cung cấp tất cả routing functions cho Location Resolver Service
//
// Cấu trúc:
// - api.go: API routes (/v1/*), health, metrics
// - web.go: Web routes (/, /docs, /status)
// - routes.go: Export functions
//
// Sử dụng:
// routes.SetupAllRoutes(router, locationController, adminController)
