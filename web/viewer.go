package web

// Single-page viewer served at the server root. It draws broadcast PNG
// frames onto a canvas and reports mouse drags and wheel events back to the
// server as orbit/zoom messages.
const viewerPage = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>stardust</title>
<style>
  body { margin: 0; height: 100vh; display: flex; align-items: center; justify-content: center; background: #000; }
  canvas { image-rendering: pixelated; cursor: grab; }
</style>
</head>
<body>
<canvas id="view"></canvas>
<script>
var canvas = document.getElementById("view");
var ctx = canvas.getContext("2d");

var ws = new WebSocket("ws://" + location.host + "/ws");
ws.binaryType = "blob";
ws.onmessage = function (ev) {
	var img = new Image();
	img.onload = function () {
		canvas.width = img.width;
		canvas.height = img.height;
		ctx.drawImage(img, 0, 0);
		URL.revokeObjectURL(img.src);
	};
	img.src = URL.createObjectURL(ev.data);
};

var dragging = false, lastX = 0, lastY = 0;
canvas.onmousedown = function (ev) {
	dragging = true;
	lastX = ev.clientX;
	lastY = ev.clientY;
};
window.onmouseup = function () { dragging = false; };
window.onmousemove = function (ev) {
	if (!dragging || ws.readyState !== WebSocket.OPEN) {
		return;
	}
	ws.send(JSON.stringify({orbit: {dx: ev.clientX - lastX, dy: ev.clientY - lastY}}));
	lastX = ev.clientX;
	lastY = ev.clientY;
};
canvas.onwheel = function (ev) {
	ev.preventDefault();
	if (ws.readyState === WebSocket.OPEN) {
		ws.send(JSON.stringify({zoom: ev.deltaY}));
	}
};
</script>
</body>
</html>
`
