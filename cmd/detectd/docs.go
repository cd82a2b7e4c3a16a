package main

// General API documentation for swaggo. Run `make swagger-gen` to generate docs.
//
// @title           detectd API
// @version         1.0
// @description     HTTP API for object detection on uploaded images.
//
// @contact.name   detectd maintainers
// @contact.url    https://github.com/your-org/detectd
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
