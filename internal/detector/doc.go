// Package detector defines the detection capability consumed by the inference
// service and the concrete backends that implement it. Files by concern:
//
//   - detector.go: Detector interface, Options, backend registry (Register/New).
//   - errors.go: ModelInferenceError and dependency-unavailable helpers.
//   - gate.go: Gate, an optional bound on concurrent Infer calls.
//   - validate.go: boundary checks for detections produced elsewhere.
//   - yolo.go: letterbox preprocessing, YOLO output decoding and NMS (pure Go).
//   - yolo_onnx.go / yolo_stub.go: the ONNX Runtime session pool, enabled with
//     `-tags=onnx`. Without the tag the yolo backend fails fast at construction.
//   - remote.go: forwards images to an external server speaking the /infer contract.
//   - static.go: replays detections from a fixture file.
//
// A Detector is built once per process and shared by all requests. Backends
// must either be safe for concurrent Infer calls or serialize internally.
package detector
