package render

const worldInstancedVertexShader = `
#version 330

in vec3 vertexPosition;
in vec2 vertexTexCoord;
in vec3 vertexNormal;
in vec4 vertexColor;
in mat4 instanceTransform;

uniform mat4 mvp;

out vec4 fragColor;
out vec3 fragNormal;
out vec3 fragWorldPos;

void main() {
    fragColor = vertexColor;
    fragNormal = normalize(mat3(instanceTransform) * vertexNormal);

    vec4 worldPos = instanceTransform * vec4(vertexPosition, 1.0);
    fragWorldPos = worldPos.xyz;
    gl_Position = mvp * worldPos;
}
`

const worldFragmentShader = `
#version 330

in vec4 fragColor;
in vec3 fragNormal;
in vec3 fragWorldPos;

uniform vec4 colDiffuse;
uniform vec3 camPos;

out vec4 finalColor;

void main() {
    // Iluminação direcional simples com ambiente alto
    vec3 lightDir = normalize(vec3(0.5, 1.0, 0.3));
    float diff = max(dot(normalize(fragNormal), lightDir), 0.0);
    vec3 light = vec3(0.45) + vec3(0.55) * diff;

    vec4 color = fragColor * colDiffuse;
    color.rgb *= light;

    // Névoa de distância, escondendo a borda do raio de streaming
    float dist = length(camPos - fragWorldPos);
    vec3 fogColor = vec3(0.53, 0.63, 0.75);
    float fogFactor = exp(-pow(dist * 0.00055, 2.0));
    fogFactor = clamp(fogFactor, 0.0, 1.0);
    color.rgb = mix(fogColor, color.rgb, fogFactor);

    finalColor = vec4(color.rgb, color.a);
}
`
